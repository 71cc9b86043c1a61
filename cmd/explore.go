package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/evodex/internal/evolution"
	"github.com/ziadkadry99/evodex/internal/explorer"
)

const (
	actionNewSearch = "New search"
	actionRetry     = "Retry"
	actionQuit      = "Quit"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively search species and walk their evolution trees",
	Long: `Starts an interactive session. Search for a species, pick it to see its
evolution tree, then pick any species in the tree to re-root on it. Picking
the root of a large family expands or collapses it.`,
	RunE: runExplore,
}

func init() {
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	s := newStack(cfg, logger)
	ctrl := s.controller(cfg)
	ctx := cmd.Context()

	for {
		snap := ctrl.Snapshot()
		var quit bool
		switch {
		case snap.State == explorer.StateError:
			quit, err = promptError(ctx, ctrl, snap)
		case snap.Tree != nil:
			quit, err = promptTree(ctx, ctrl, snap.Tree)
		default:
			quit, err = promptSearch(ctx, ctrl)
		}
		if quit || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			stats := s.resolver.Cache().Stats()
			logger.Info("explorer session ended",
				zap.Int64("cache_hits", stats.Hits),
				zap.Int64("cache_misses", stats.Misses),
			)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// menu is a select list of species followed by fixed actions. Entries are
// told apart by position, so a species may share an action's label.
type menu struct {
	labels  []string
	species int
}

func newMenu(species []string, actions ...string) menu {
	labels := make([]string, 0, len(species)+len(actions))
	labels = append(labels, species...)
	labels = append(labels, actions...)
	return menu{labels: labels, species: len(species)}
}

// pick maps a selected index to a species index, or to an action label
// with species set to -1.
func (m menu) pick(idx int) (species int, action string) {
	if idx < m.species {
		return idx, ""
	}
	return -1, m.labels[idx]
}

func (m menu) run(label string, size int) (species int, action string, err error) {
	sel := promptui.Select{Label: label, Items: m.labels, Size: size}
	idx, _, err := sel.Run()
	if err != nil {
		return -1, "", err
	}
	species, action = m.pick(idx)
	return species, action, nil
}

// report prints a failed action. Failures that moved the controller into
// the error state are left to promptError on the next pass.
func report(ctrl *explorer.Controller, err error) {
	if err == nil || ctrl.Snapshot().State == explorer.StateError {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// promptSearch asks for a query and lets the user pick a result.
func promptSearch(ctx context.Context, ctrl *explorer.Controller) (bool, error) {
	queryPrompt := promptui.Prompt{Label: "Search species"}
	query, err := queryPrompt.Run()
	if err != nil {
		return false, err
	}

	refs, err := ctrl.Search(ctx, query)
	if err != nil {
		report(ctrl, err)
		return false, nil
	}
	if len(refs) == 0 {
		fmt.Println("No matches.")
		return false, nil
	}

	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	species, action, err := newMenu(names, actionNewSearch, actionQuit).run("Pick a species", 12)
	if err != nil {
		return false, err
	}
	switch {
	case species >= 0:
		_, err := ctrl.Select(ctx, names[species])
		report(ctrl, err)
	case action == actionNewSearch:
		ctrl.Reset()
	case action == actionQuit:
		return true, nil
	}
	return false, nil
}

// promptTree prints the tree and lets the user activate one of its species.
func promptTree(ctx context.Context, ctrl *explorer.Controller, tree *evolution.Result) (bool, error) {
	fmt.Println()
	if err := evolution.WriteTree(os.Stdout, tree); err != nil {
		return false, err
	}
	fmt.Println()

	root := tree.Species.Name
	rootLabel := root + " (root)"
	if tree.FamilyLarge {
		if tree.Expanded {
			rootLabel = root + " (collapse family)"
		} else {
			rootLabel = root + " (expand family)"
		}
	}

	labels := []string{rootLabel}
	names := []string{root}
	seen := map[string]bool{root: true}
	for _, level := range evolution.Flatten(tree) {
		for _, sp := range level {
			if seen[sp.Name] {
				continue
			}
			seen[sp.Name] = true
			labels = append(labels, sp.Name)
			names = append(names, sp.Name)
		}
	}

	species, action, err := newMenu(labels, actionNewSearch, actionQuit).run("Go to", 15)
	if err != nil {
		return false, err
	}
	switch {
	case species >= 0:
		_, err := ctrl.Activate(ctx, names[species])
		report(ctrl, err)
	case action == actionNewSearch:
		ctrl.Reset()
	case action == actionQuit:
		return true, nil
	}
	return false, nil
}

// promptError reports the failure and offers a retry.
func promptError(ctx context.Context, ctrl *explorer.Controller, snap explorer.Snapshot) (bool, error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", snap.Err)

	_, action, err := newMenu(nil, actionRetry, actionNewSearch, actionQuit).run("What now", 3)
	if err != nil {
		return false, err
	}
	switch action {
	case actionRetry:
		report(ctrl, ctrl.Retry(ctx))
	case actionNewSearch:
		ctrl.Reset()
	case actionQuit:
		return true, nil
	}
	return false, nil
}
