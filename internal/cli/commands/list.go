package commands

import (
	"github.com/spf13/cobra"

	"github.com/gostpanel/console/internal/console/views"
)

// paginated views accept --page, --page-size and --search.
var paginated = map[string]bool{
	views.Nodes:         true,
	views.Clients:       true,
	views.Users:         true,
	views.OperationLogs: true,
}

var viewAliases = map[string][]string{
	views.Dashboard:     {"status"},
	views.Nodes:         {"node"},
	views.Clients:       {"client"},
	views.Notify:        {"notify-channels"},
	views.PortForwards:  {"forwards"},
	views.NodeGroups:    {"groups"},
	views.ProxyChains:   {"chains"},
	views.OperationLogs: {"logs"},
}

// NewViewCmds creates one command per protected view. Each navigates to its
// route and prints the rendered page.
func NewViewCmds(env *Env) []*cobra.Command {
	var cmds []*cobra.Command
	for _, name := range views.ProtectedRoutes {
		if name == views.ChangePassword {
			continue
		}
		cmds = append(cmds, newViewCmd(env, name))
	}
	return cmds
}

func newViewCmd(env *Env, route string) *cobra.Command {
	cmd := &cobra.Command{
		Use:         route,
		Aliases:     viewAliases[route],
		Short:       "Show " + views.Title(route),
		Annotations: map[string]string{AnnotationRoute: route},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env.printPage()
			return nil
		},
	}

	if paginated[route] {
		cmd.Flags().IntVar(&env.Page.Page, "page", 1, "Page number")
		cmd.Flags().IntVar(&env.Page.PageSize, "page-size", 20, "Rows per page")
		cmd.Flags().StringVar(&env.Page.Search, "search", "", "Filter by name")
	}
	return cmd
}
