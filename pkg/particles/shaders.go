package particles

import "math"

// VertexShader is the GLSL ES 1.0 vertex program equivalent to VertexStage.
const VertexShader = `precision highp float;
attribute vec3 a_pos0;
attribute float a_seed;
uniform float u_time, u_phase, u_zoom;
uniform vec2 u_view;
uniform mat3 u_rot;
uniform float u_pointPx;
uniform float u_alpha;
varying float v_alpha;

float hash11(float p) {
  p = fract(p * 0.1031);
  p *= p + 33.33;
  p *= p + p;
  return fract(p);
}

void main() {
  vec3 p = a_pos0;
  float j = 0.006 * sin(u_time * 1.2 + a_seed * 6.28);
  p += j * normalize(vec3(sin(a_seed * 4.1), cos(a_seed * 3.7), sin(a_seed * 2.3)));
  p.z *= (1.0 - u_phase);

  float cy = cos(u_time * 0.08), sy = sin(u_time * 0.08);
  mat3 ry = mat3(cy, 0.0, sy, 0.0, 1.0, 0.0, -sy, 0.0, cy);
  vec3 pr = u_rot * (ry * p);

  float f = 1.0 / (1.0 + pr.z * 0.6);
  vec2 screen = pr.xy * (u_zoom * f);
  gl_Position = vec4(screen / (0.5 * u_view), 0.0, 1.0);
  gl_PointSize = u_pointPx * (0.8 + 0.4 * hash11(a_seed * 7.3)) * f;

  v_alpha = u_alpha * smoothstep(1.2, 0.0, length(p)) * (0.3 + 0.7 * hash11(a_seed * 9.1));
}
`

// FragmentShader is the GLSL ES 1.0 fragment program equivalent to Fragment.
const FragmentShader = `precision highp float;
uniform vec3 u_color;
varying float v_alpha;

void main() {
  vec2 p = gl_PointCoord * 2.0 - 1.0;
  float d = dot(p, p);
  if (d > 1.0) discard;
  gl_FragColor = vec4(u_color, v_alpha * exp(-2.5 * d));
}
`

// Attribute describes one per-vertex input buffer.
type Attribute struct {
	Name       string `json:"name"`
	Components int    `json:"components"`
	Type       string `json:"type"`
}

// BlendFunc names the blend factors of a draw call.
type BlendFunc struct {
	SrcRGB   string `json:"src_rgb"`
	DstRGB   string `json:"dst_rgb"`
	SrcAlpha string `json:"src_alpha"`
	DstAlpha string `json:"dst_alpha"`
}

// Pipeline is a host-agnostic description of the particle draw call.
type Pipeline struct {
	Vertex     string         `json:"vertex"`
	Fragment   string         `json:"fragment"`
	Primitive  string         `json:"primitive"`
	Attributes []Attribute    `json:"attributes"`
	Uniforms   map[string]any `json:"uniforms"`
	Blend      BlendFunc      `json:"blend"`
	Depth      bool           `json:"depth"`
	Count      int            `json:"count"`
	Defaults   Uniforms       `json:"defaults"`
}

// Describe returns the pipeline for count particles with u as the initial
// uniforms and the given blend mode.
func Describe(count int, u Uniforms, mode Blend) Pipeline {
	if count < MinCount {
		count = MinCount
	}
	return Pipeline{
		Vertex:    VertexShader,
		Fragment:  FragmentShader,
		Primitive: "points",
		Attributes: []Attribute{
			{Name: "a_pos0", Components: 3, Type: "float32"},
			{Name: "a_seed", Components: 1, Type: "float32"},
		},
		Uniforms: map[string]any{
			"u_time":    u.Time,
			"u_phase":   u.Phase,
			"u_zoom":    u.Zoom,
			"u_view":    [2]float64{u.ViewW, u.ViewH},
			"u_rot":     RotationColumns(u.Tilt),
			"u_pointPx": u.PointPx,
			"u_alpha":   u.Alpha,
			"u_color":   u.Color,
		},
		Blend:    mode.Func(),
		Count:    count,
		Defaults: u,
	}
}

// RotationColumns returns the tilt rotation as a column-major mat3, the
// layout GLSL expects for u_rot.
func RotationColumns(tiltDeg float64) [9]float64 {
	rad := tiltDeg * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return [9]float64{1, 0, 0, 0, c, -s, 0, s, c}
}
