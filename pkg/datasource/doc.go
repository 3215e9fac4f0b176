// Package datasource resolves queries to entity keys and loads their ego
// graphs.
//
// # Fallback chain
//
// [Source.Load] tries, in order:
//
//  1. api-binary: GET {api}/graph/ego?person_id=…&variant=…&limit=… (NodeBuffer)
//  2. api-json: the same request with format=json
//  3. cache-binary: {tiles}/person/{id}.bin
//  4. cache-json: {tiles}/person/{id}.json
//
// A stage that fails to fetch or decode advances the chain without
// retrying. Only when every stage fails does Load return an error, coded
// NOT_FOUND, whose cause joins each stage's failure. The chain itself is
// the generic [Fallback] combinator over a list of [Stage] values.
//
// # Tiles
//
// Cache tiles and the resolver index live behind [Tiles]: [HTTPTiles] for
// a remote /cache/ tree, [DirTiles] for a local directory and
// [MongoTiles] for a shared MongoDB collection. [OpenTiles] picks one from
// a source string.
//
// # Resolving
//
// [Resolver] passes canonical keys ("person:42", "company:7") through,
// looks free text up in resolver.json by profile handle, person name and
// company name, and asks the API's /resolve endpoint for profile URLs it
// cannot find locally.
//
// A [Source] is built from a [config.Config]; it never reads the
// environment itself:
//
//	src, err := datasource.New(ctx, cfg, datasource.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//	res, err := src.Load(ctx, "https://linkedin.com/in/jane-doe")
package datasource
