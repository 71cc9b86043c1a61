package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to evodex! Let's configure your explorer.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Gateway.
	gatewayPrompt := promptui.Prompt{
		Label:    "Species gateway URL",
		Default:  cfg.GatewayURL,
		Validate: validateURL,
	}
	gatewayURL, err := gatewayPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("gateway url: %w", err)
	}
	cfg.GatewayURL = strings.TrimRight(strings.TrimSpace(gatewayURL), "/")

	// 2. Traversal depth.
	depthPrompt := promptui.Select{
		Label: "Maximum evolution depth",
		Items: []string{
			"8 - full chains (recommended)",
			"4 - shallow",
			"2 - immediate neighbours only",
		},
	}
	depthIdx, _, err := depthPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("depth selection: %w", err)
	}
	cfg.Explorer.MaxDepth = []int{8, 4, 2}[depthIdx]

	// 3. Large-family tag.
	tagPrompt := promptui.Prompt{
		Label:   "Family tag that starts collapsed",
		Default: cfg.Explorer.LargeFamilyTag,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("tag must not be blank")
			}
			return nil
		},
	}
	tag, err := tagPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("family tag: %w", err)
	}
	cfg.Explorer.LargeFamilyTag = strings.TrimSpace(tag)

	// 4. Local gateway port.
	portPrompt := promptui.Prompt{
		Label:    "Port for `evodex gateway`",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
