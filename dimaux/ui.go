//go:build !tinygo && cgo

package dimaux

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

const (
	vertexShader = `#version 460
in vec3 aPos;
in vec3 aNormal;
uniform vec3 uOffset;
uniform float uScale;
uniform vec3 uEye;
uniform float uExtent;
uniform float uAspect;
uniform float uYaw;
uniform float uPitch;
out vec3 vNormal;

void main() {
	float cy = cos(uYaw), sy = sin(uYaw);
	float cp = cos(uPitch), sp = sin(uPitch);
	mat3 yaw = mat3(cy, 0.0, -sy, 0.0, 1.0, 0.0, sy, 0.0, cy);
	mat3 pitch = mat3(1.0, 0.0, 0.0, 0.0, cp, sp, 0.0, -sp, cp);
	mat3 rot = pitch * yaw;
	vec3 p = rot * (aPos*uScale + uOffset - uEye);
	vNormal = rot * aNormal;
	gl_Position = vec4(p.x/(uExtent*uAspect), p.y/uExtent, -p.z/uExtent, 1.0);
}
` + "\x00"
	fragmentShader = `#version 460
in vec3 vNormal;
uniform vec3 uColor;
out vec4 fragColor;

void main() {
	vec3 n = normalize(vNormal);
	float dif = clamp(dot(n, normalize(vec3(0.4, 0.6, 1.0))), 0.0, 1.0);
	fragColor = vec4(uColor*(0.25 + 0.75*dif), 1.0);
}
` + "\x00"
)

// UI opens a window showing the viewer's scene. Dragging with the left mouse button
// orbits, scrolling zooms. T steps the embedding once and Shift+T ten times,
// K exports the embedding, B and Shift+B rescale the scene.
func UI(ctx context.Context, v *Viewer, cfg UIConfig) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	log := v.Logger
	if log == nil {
		log = slog.Default()
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertexShader,
		Fragment: fragmentShader,
	})
	if err != nil {
		return err
	}
	prog.Bind()

	mesh := &v.Scene.Mesh
	var vao, vbo, nbo, ibo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(mesh.Vertices), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 3, gl.FLOAT, false, 0, gl.PtrOffset(0))

	gl.GenBuffers(1, &nbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, nbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(mesh.Normals), gl.Ptr(mesh.Normals), gl.STATIC_DRAW)
	normAttrib, err := prog.AttribLocation("aNormal\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(normAttrib)
	gl.VertexAttribPointer(normAttrib, 3, gl.FLOAT, false, 0, gl.PtrOffset(0))

	gl.GenBuffers(1, &ibo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, ibo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, 2*len(mesh.TriIndices), gl.Ptr(mesh.TriIndices), gl.STATIC_DRAW)

	var uniforms struct {
		offset, scale, eye, extent, aspect, yaw, pitch, color int32
	}
	for _, u := range []struct {
		dst  *int32
		name string
	}{
		{&uniforms.offset, "uOffset\x00"},
		{&uniforms.scale, "uScale\x00"},
		{&uniforms.eye, "uEye\x00"},
		{&uniforms.extent, "uExtent\x00"},
		{&uniforms.aspect, "uAspect\x00"},
		{&uniforms.yaw, "uYaw\x00"},
		{&uniforms.pitch, "uPitch\x00"},
		{&uniforms.color, "uColor\x00"},
	} {
		*u.dst, err = prog.UniformLocation(u.name)
		if err != nil {
			return fmt.Errorf("uniform %s: %w", u.name[:len(u.name)-1], err)
		}
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.CULL_FACE)

	var (
		yaw, pitch             float64
		lastMouseX, lastMouseY float64
		firstMouseMove         = true
		isMousePressed         = false
		sensitivity            = 0.005
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX, lastMouseY = xpos, ypos
			firstMouseMove = false
		}
		yaw += (xpos - lastMouseX) * sensitivity
		pitch += (ypos - lastMouseY) * sensitivity
		maxPitch := math.Pi/2 - 0.01
		pitch = max(-maxPitch, min(maxPitch, pitch))
		lastMouseX, lastMouseY = xpos, ypos
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		switch action {
		case glfw.Press:
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		case glfw.Release:
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		v.Scene.Camera.Extent *= float32(1 - 0.1*yoff)
	})
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press && action != glfw.Repeat {
			return
		}
		shift := mods&glfw.ModShift != 0
		var a Action
		switch key {
		case glfw.KeyT:
			a = ActionStep
			if shift {
				a = ActionStep10
			}
		case glfw.KeyB:
			a = ActionZoomIn
			if shift {
				a = ActionZoomOut
			}
		case glfw.KeyK:
			a = ActionExport
		case glfw.KeyEscape:
			w.SetShouldClose(true)
			return
		default:
			return
		}
		if err := v.Do(a); err != nil {
			log.Error("viewer action failed", slog.Int("action", int(a)), slog.String("err", err.Error()))
		}
	})

	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.06, 0.06, 0.09, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
		prog.Bind()
		cam := v.Scene.Camera
		gl.Uniform3f(uniforms.eye, cam.Eye.X, cam.Eye.Y, cam.Eye.Z)
		gl.Uniform1f(uniforms.extent, max(cam.Extent, 1e-6))
		gl.Uniform1f(uniforms.aspect, float32(width)/float32(max(height, 1)))
		gl.Uniform1f(uniforms.yaw, float32(yaw))
		gl.Uniform1f(uniforms.pitch, float32(pitch))
		gl.BindVertexArray(vao)
		for _, inst := range v.Scene.Instances {
			c := ClassColorVec(inst.Label)
			gl.Uniform3f(uniforms.color, c.X, c.Y, c.Z)
			gl.Uniform3f(uniforms.offset, inst.Pos.X, inst.Pos.Y, inst.Pos.Z)
			gl.Uniform1f(uniforms.scale, inst.Scale)
			gl.DrawElements(gl.TRIANGLES, int32(len(mesh.TriIndices)), gl.UNSIGNED_SHORT, gl.PtrOffset(0))
		}
		window.SwapBuffers()
		glfw.PollEvents()
		time.Sleep(time.Second / 60)
	}
	return nil
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	window, err = glfw.CreateWindow(width, height, "dimview", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
