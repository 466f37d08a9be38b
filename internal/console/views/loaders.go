package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gostpanel/console/internal/cli/client"
	"github.com/gostpanel/console/internal/console/router"
)

const (
	loginHelp = "Sign in to the panel with 'gostctl login'.\n"

	registerHelp = "Create an account with 'gostctl register --username NAME --email ADDRESS'.\n" +
		"Registration must be enabled on the panel.\n"

	verifyEmailHelp = "Confirm your address with 'gostctl verify-email TOKEN'.\n" +
		"The token is in the mail sent at registration.\n"

	forgotPasswordHelp = "Request a reset mail with 'gostctl forgot-password ADDRESS'.\n"

	resetPasswordHelp = "Set a new password with 'gostctl reset-password TOKEN'.\n"

	readOnlyNote = "Read-only: your role cannot change these settings.\n"
)

type views struct {
	deps Deps
}

type renderFunc func(ctx context.Context, w io.Writer) error

func (v *views) static(name, body string) func(context.Context) (router.Page, error) {
	return func(context.Context) (router.Page, error) {
		return router.Page{Title: Title(name), Body: body}, nil
	}
}

// guarded wraps a protected view's renderer. The staleness check runs first
// so an outdated console reloads before it talks to the panel.
func (v *views) guarded(name string, render renderFunc) func(context.Context) (router.Page, error) {
	return func(ctx context.Context) (router.Page, error) {
		if v.deps.Watcher != nil {
			if err := v.deps.Watcher.Check(); err != nil {
				return router.Page{}, fmt.Errorf("failed to load %s view: %w", name, err)
			}
		}

		var buf bytes.Buffer
		if err := render(ctx, &buf); err != nil {
			return router.Page{}, fmt.Errorf("failed to load %s view: %w", name, err)
		}
		return router.Page{Title: Title(name), Body: buf.String()}, nil
	}
}

func (v *views) canWrite() bool {
	return v.deps.Session != nil && v.deps.Session.CanWrite()
}

func (v *views) isAdmin() bool {
	return v.deps.Session != nil && v.deps.Session.IsAdmin()
}

// readOnly appends the viewer note.
func (v *views) readOnly(w io.Writer) {
	if !v.canWrite() {
		fmt.Fprint(w, "\n"+readOnlyNote)
	}
}

func pageFooter(w io.Writer, shown, total, page int) {
	if page == 0 {
		page = 1
	}
	fmt.Fprintf(w, "\n%d of %d (page %d)\n", shown, total, page)
}

func (v *views) dashboard(ctx context.Context, w io.Writer) error {
	stats, err := v.deps.API.Stats(ctx)
	if err != nil {
		return err
	}

	if user := v.sessionUser(); user != "" {
		fmt.Fprintf(w, "Signed in as %s\n\n", user)
	}

	return pairs(w, [][2]string{
		{"Nodes", fmt.Sprintf("%d online / %d", stats.OnlineNodes, stats.TotalNodes)},
		{"Clients", fmt.Sprintf("%d online / %d", stats.OnlineClients, stats.TotalClients)},
		{"Users", strconv.Itoa(stats.TotalUsers)},
		{"Traffic in", formatBytes(stats.TotalTrafficIn)},
		{"Traffic out", formatBytes(stats.TotalTrafficOut)},
		{"Connections", strconv.Itoa(stats.TotalConnections)},
	})
}

func (v *views) sessionUser() string {
	if v.deps.Session == nil {
		return ""
	}
	user := v.deps.Session.User()
	if user == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)", user.Username, orDash(user.Role))
}

func (v *views) nodes(ctx context.Context, w io.Writer) error {
	page, err := v.deps.API.ListNodes(ctx, v.deps.Page)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Data))
	for _, n := range page.Data {
		tags := make([]string, 0, len(n.Tags))
		for _, t := range n.Tags {
			tags = append(tags, t.Name)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(n.ID), 10),
			n.Name,
			fmt.Sprintf("%s:%d", n.Host, n.Port),
			orDash(n.Protocol),
			orDash(n.Status),
			strconv.Itoa(n.Connections),
			formatBytes(n.TrafficIn + n.TrafficOut),
			orDash(strings.Join(tags, ",")),
		})
	}
	if err := table(w, []string{"ID", "NAME", "ADDRESS", "PROTOCOL", "STATUS", "CONNS", "TRAFFIC", "TAGS"}, rows); err != nil {
		return err
	}
	pageFooter(w, len(page.Data), page.Total, page.Page)
	v.readOnly(w)
	return nil
}

func (v *views) clients(ctx context.Context, w io.Writer) error {
	page, err := v.deps.API.ListClients(ctx, v.deps.Page)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Data))
	for _, c := range page.Data {
		node := "-"
		if c.Node != nil {
			node = c.Node.Name
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name,
			node,
			orDash(c.Status),
			strconv.Itoa(c.ListenPort),
			orDash(c.TargetAddr),
			formatTime(c.LastHeartbeat),
		})
	}
	if err := table(w, []string{"ID", "NAME", "NODE", "STATUS", "PORT", "TARGET", "HEARTBEAT"}, rows); err != nil {
		return err
	}
	pageFooter(w, len(page.Data), page.Total, page.Page)
	v.readOnly(w)
	return nil
}

func (v *views) users(ctx context.Context, w io.Writer) error {
	if !v.isAdmin() {
		fmt.Fprintln(w, "User management requires the admin role.")
		return nil
	}

	page, err := v.deps.API.ListUsers(ctx, v.deps.Page)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Data))
	for _, u := range page.Data {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Username,
			orDash(u.Email),
			orDash(u.Role),
			yesNo(u.EmailVerified),
			formatTime(u.LastLogin),
		})
	}
	if err := table(w, []string{"ID", "USERNAME", "EMAIL", "ROLE", "VERIFIED", "LAST LOGIN"}, rows); err != nil {
		return err
	}
	pageFooter(w, len(page.Data), page.Total, page.Page)
	return nil
}

func (v *views) notify(ctx context.Context, w io.Writer) error {
	channels, err := v.deps.API.ListNotifyChannels(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(channels))
	for _, c := range channels {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name,
			c.Type,
			yesNo(c.Enabled),
		})
	}
	if err := table(w, []string{"ID", "NAME", "TYPE", "ENABLED"}, rows); err != nil {
		return err
	}
	v.readOnly(w)
	return nil
}

func (v *views) portForwards(ctx context.Context, w io.Writer) error {
	forwards, err := v.deps.API.ListPortForwards(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(forwards))
	for _, f := range forwards {
		node := "-"
		if f.Node != nil {
			node = f.Node.Name
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(f.ID), 10),
			f.Name,
			node,
			orDash(f.Protocol),
			strconv.Itoa(f.ListenPort),
			orDash(f.TargetAddr),
			yesNo(f.Enabled),
		})
	}
	if err := table(w, []string{"ID", "NAME", "NODE", "PROTOCOL", "PORT", "TARGET", "ENABLED"}, rows); err != nil {
		return err
	}
	v.readOnly(w)
	return nil
}

func (v *views) nodeGroups(ctx context.Context, w io.Writer) error {
	groups, err := v.deps.API.ListNodeGroups(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		members := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			name := strconv.FormatUint(uint64(m.NodeID), 10)
			if m.Node != nil {
				name = m.Node.Name
			}
			members = append(members, fmt.Sprintf("%s(%d)", name, m.Weight))
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(g.ID), 10),
			g.Name,
			orDash(g.Strategy),
			orDash(strings.Join(members, ", ")),
		})
	}
	if err := table(w, []string{"ID", "NAME", "STRATEGY", "MEMBERS"}, rows); err != nil {
		return err
	}
	v.readOnly(w)
	return nil
}

func (v *views) proxyChains(ctx context.Context, w io.Writer) error {
	chains, err := v.deps.API.ListProxyChains(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(chains))
	for _, c := range chains {
		hops := make([]string, 0, len(c.Hops))
		for _, h := range c.Hops {
			name := strconv.FormatUint(uint64(h.NodeID), 10)
			if h.Node != nil {
				name = h.Node.Name
			}
			hops = append(hops, name)
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name,
			orDash(strings.Join(hops, " -> ")),
			yesNo(c.Enabled),
		})
	}
	if err := table(w, []string{"ID", "NAME", "HOPS", "ENABLED"}, rows); err != nil {
		return err
	}
	v.readOnly(w)
	return nil
}

func (v *views) tunnels(ctx context.Context, w io.Writer) error {
	tunnels, err := v.deps.API.ListTunnels(ctx)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(tunnels))
	for _, t := range tunnels {
		entry, exit := strconv.FormatUint(uint64(t.EntryNodeID), 10), strconv.FormatUint(uint64(t.ExitNodeID), 10)
		if t.EntryNode != nil {
			entry = t.EntryNode.Name
		}
		if t.ExitNode != nil {
			exit = t.ExitNode.Name
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Name,
			entry,
			exit,
			strconv.Itoa(t.ListenPort),
			orDash(t.TargetAddr),
			yesNo(t.Enabled),
		})
	}
	if err := table(w, []string{"ID", "NAME", "ENTRY", "EXIT", "PORT", "TARGET", "ENABLED"}, rows); err != nil {
		return err
	}
	v.readOnly(w)
	return nil
}

func (v *views) settings(ctx context.Context, w io.Writer) error {
	cfg, err := v.deps.API.SiteConfig(ctx)
	if err != nil {
		return err
	}

	if err := pairs(w, [][2]string{
		{"Site name", orDash(cfg.SiteName)},
		{"Site URL", orDash(cfg.SiteURL)},
		{"Footer", orDash(cfg.FooterText)},
		{"Registration", orDash(cfg.RegistrationEnabled)},
		{"Email verification", orDash(cfg.EmailVerificationEnabled)},
	}); err != nil {
		return err
	}
	if !v.isAdmin() {
		fmt.Fprint(w, "\nOnly administrators can change site settings.\n")
	}
	return nil
}

func (v *views) operationLogs(ctx context.Context, w io.Writer) error {
	page, err := v.deps.API.ListOperationLogs(ctx, v.deps.Page)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(page.Data))
	for _, l := range page.Data {
		rows = append(rows, []string{
			formatTime(l.CreatedAt),
			orDash(l.Username),
			l.Action,
			fmt.Sprintf("%s/%d", l.Resource, l.ResourceID),
			orDash(l.IP),
			orDash(l.Status),
		})
	}
	if err := table(w, []string{"TIME", "USER", "ACTION", "RESOURCE", "IP", "STATUS"}, rows); err != nil {
		return err
	}
	pageFooter(w, len(page.Data), page.Total, page.Page)
	return nil
}

func (v *views) changePassword(ctx context.Context, w io.Writer) error {
	user := v.sessionUser()
	if user == "" {
		user = "the current user"
	}
	fmt.Fprintf(w, "Change the password of %s with 'gostctl change-password'.\n", user)
	if v.deps.Session == nil {
		return nil
	}
	if u := v.deps.Session.User(); u != nil && !u.PasswordChanged {
		fmt.Fprintln(w, "The initial password is still in use. Change it now.")
	}
	return nil
}

var _ PanelAPI = (*client.Client)(nil)
