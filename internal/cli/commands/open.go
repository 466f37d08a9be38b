package commands

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/console/views"
)

// openBrowser is swapped out by tests.
var openBrowser = defaultOpenBrowser

// NewOpenCmd creates the open command
func NewOpenCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:         "open [view]",
		Short:       "Open the panel's web UI in a browser",
		Annotations: map[string]string{AnnotationSession: "true"},
		Args:        cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := views.Dashboard
			if len(args) == 1 {
				name = args[0]
			}
			route, ok := env.Router.Lookup(name)
			if !ok {
				return fmt.Errorf("unknown view %q", name)
			}

			url := strings.TrimRight(env.Panel.URL, "/") + "/#" + route.Path
			fmt.Fprintf(env.Out, "Opening %s for %s...\n", views.Title(route.Name), env.Panel.Name)
			fmt.Fprintf(env.Out, "URL: %s\n", url)

			if err := openBrowser(url); err != nil {
				return fmt.Errorf("failed to open browser: %w\nPlease visit: %s", err, url)
			}
			return nil
		},
	}
}

func defaultOpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
