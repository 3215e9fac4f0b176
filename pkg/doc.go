// Package pkg holds the grandgraph libraries.
//
// # Overview
//
// Grandgraph draws professional ego networks: one person or company at the
// center, the people they shared employers with on concentric rings around
// it, and a slowly rotating particle cloud beneath. The libraries are
// organized as:
//
//  1. [tile] and [graph] - the NodeBuffer wire format, the JSON tile format
//     and the node/edge records both decode into
//  2. [layout] - concentric ego layout and the synthetic demo graph
//  3. [view], [render] and [particles] - view transform and pointer state,
//     the layered scene, canvases and the particle field
//  4. [datasource] and [store] - the remote query API, cache tiles, the
//     resolver index and the local analytical database
//  5. [pipeline] - resolve → load → render, shared by the CLI, the terminal
//     viewer and the HTTP server
//
// # Architecture
//
//	query ("person:42", handle, profile URL, name)
//	         ↓
//	    [datasource] resolver + fallback chain
//	    (api binary → api json → cache binary → cache json)
//	         ↓
//	    [graph] nodes with world positions
//	         ↓
//	    [render] Scene over [particles] Field
//	         ↓
//	    PNG / SVG / DOT / terminal frames
//
// # Quick Start
//
//	cfg, _ := config.Load(config.DefaultPath())
//	src, _ := datasource.New(ctx, cfg)
//	res, _ := src.Load(ctx, "person:42")
//	png, _ := sink.RenderPNG(ctx, res.Graph, sink.WithSize(1200, 800))
//
// # Supporting Packages
//
// [cache] - response and frame caches (file, Redis, null) with keyers.
//
// [httputil] - bearer transport, retries and a TTL JSON memo.
//
// [config] - the TOML configuration file.
//
// [errors] - coded errors mapped to user messages and HTTP statuses.
//
// [observability] - hooks for load, render, cache and HTTP events.
//
// [buildinfo] - version information injected at build time.
package pkg
