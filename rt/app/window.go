package app

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// NewWindow initializes glfw and opens a window with no client API, ready for
// a WebGPU surface. It must be called from the locked main thread; call
// CloseWindow when done.
func NewWindow(width, height int, title string) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("glfw create window: %w", err)
	}
	return window, nil
}

func CloseWindow(window *glfw.Window) {
	if window != nil {
		window.Destroy()
	}
	glfw.Terminate()
}
