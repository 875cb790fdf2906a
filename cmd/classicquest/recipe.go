package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/kingrea/classic-quest/internal/cart"
	"github.com/kingrea/classic-quest/internal/icons"
)

func newRecipeCmd(opts *globalOptions) *cobra.Command {
	var craft string
	cmd := &cobra.Command{
		Use:   "recipe <id>",
		Short: "Show a recipe with reagents scaled by --craft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("recipe id must be a number, got %q", args[0])
			}
			s, err := openSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			engine := s.newEngine()
			if _, err := engine.SelectRecipe(id); err != nil {
				return err
			}
			active := engine.SetMultiplierText(craft)

			var found *icons.Result
			if s.enricher.Enabled() {
				res := s.enricher.Enrich(cmd.Context(), engine.Generation(), active.Recipe.ItemIDs())
				found = &res
			}

			md := recipeMarkdown(active, s.cfg.Project.Links.SpellURL, found)
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(80),
			)
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			out, err := renderer.Render(md)
			if err != nil {
				return fmt.Errorf("render recipe: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&craft, "craft", "n", "1", "number of crafts (1-100)")
	return cmd
}

// recipeMarkdown lays out one recipe. icons may be nil when lookups are off.
func recipeMarkdown(active cart.ActiveRecipe, spellURL string, found *icons.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", active.Recipe.Name)
	fmt.Fprintf(&b, "Spell: %s\n\n", active.Recipe.SpellURL(spellURL))
	fmt.Fprintf(&b, "Crafts: %d\n\n", active.Multiplier)
	b.WriteString("| Reagent | Item | Per craft | Total | Icon |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range active.Reagents() {
		item := "-"
		if r.ItemID > 0 {
			item = strconv.Itoa(r.ItemID)
		}
		icon := "no image"
		if found != nil {
			if i := found.Icon(r.ItemID); i.Available() {
				icon = i.URL
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s |\n", r.Name, item, r.BaseQuantity, r.Quantity, icon)
	}
	return b.String()
}
