package panelselect

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/gostpanel/console/internal/cli/config"
	"github.com/gostpanel/console/internal/cli/userconfig"
)

// ErrNoPanel is returned when nothing names a panel to talk to.
var ErrNoPanel = errors.New("no panel configured: set GOSTPANEL_URL, pass --url, or add a panel to console.yaml")

// prompt is swapped out by tests.
var prompt = PromptPanelSelection

// Resolve determines which panel to use based on the following priority:
// 1. An explicit URL (--url or GOSTPANEL_URL)
// 2. An explicit panel name (--panel or GOSTCTL_PANEL)
// 3. The panel selected earlier with 'gostctl select-panel'
// 4. The only configured panel
// 5. An interactive choice among the configured panels
func Resolve(cfg *config.Config, name, rawURL string) (*config.Panel, error) {
	// Priority 1: explicit URL
	if rawURL != "" {
		if err := config.ValidateURL(rawURL); err != nil {
			return nil, err
		}
		if panel, ok := cfg.GetPanelByURL(rawURL); ok {
			return panel, nil
		}
		return &config.Panel{Name: config.DefaultPanelName, URL: rawURL}, nil
	}

	// Priority 2: explicit name
	if name != "" {
		return cfg.GetPanel(name)
	}

	// Priority 3: selected panel from local state
	selected, err := userconfig.GetSelectedPanel()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if selected != "" {
		panel, err := cfg.GetPanel(selected)
		if err == nil {
			return panel, nil
		}
		// Selected panel no longer exists, clear it and continue
		_ = userconfig.SetSelectedPanel("")
	}

	switch len(cfg.Panels) {
	case 0:
		return nil, ErrNoPanel
	case 1:
		// Priority 4: only one panel
		panel := &cfg.Panels[0]
		remember(panel)
		return panel, nil
	}

	// Priority 5: ask
	panel, err := prompt(cfg)
	if err != nil {
		return nil, err
	}
	remember(panel)
	return panel, nil
}

func remember(panel *config.Panel) {
	if err := userconfig.SetSelectedPanel(panel.Name); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Fprintf(os.Stderr, "Warning: failed to save selected panel: %v\n", err)
	}
}

// PromptPanelSelection shows an interactive prompt to pick a panel
func PromptPanelSelection(cfg *config.Config) (*config.Panel, error) {
	if len(cfg.Panels) == 0 {
		return nil, ErrNoPanel
	}

	type panelOption struct {
		Label string
		Panel *config.Panel
	}

	options := make([]panelOption, len(cfg.Panels))
	for i := range cfg.Panels {
		panel := &cfg.Panels[i]
		options[i] = panelOption{
			Label: fmt.Sprintf("%s (%s)", panel.Name, panel.URL),
			Panel: panel,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	sel := promptui.Select{
		Label:     "Select a panel",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := sel.Run()
	if err != nil {
		return nil, fmt.Errorf("panel selection cancelled: %w", err)
	}

	return options[index].Panel, nil
}
