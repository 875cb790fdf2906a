// internal/tui/app.go
//
// This is the main TUI for classicquest.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// The flow is: User Input -> Message -> Update -> New Model -> View -> Screen
//
// The App owns a cart.Engine and is the only thing that mutates it. Icon
// lookups run as tea.Cmds off the update loop and come back as messages
// tagged with the selection they were started for.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/classic-quest/internal/cart"
	"github.com/kingrea/classic-quest/internal/export"
	"github.com/kingrea/classic-quest/internal/icons"
	"github.com/kingrea/classic-quest/internal/logbook"
	"github.com/kingrea/classic-quest/internal/logging"
	"github.com/kingrea/classic-quest/internal/recipe"
)

// focusArea is the panel receiving keystrokes.
type focusArea int

const (
	focusSearch focusArea = iota // search box and suggestions
	focusRecipe                  // active recipe multiplier
	focusPinned                  // pinned list
)

const logPanelLines = 6

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithEnricher enables reagent icons.
func WithEnricher(e *icons.Enricher) AppOption {
	return func(a *App) {
		a.enricher = e
	}
}

// WithLogbook attaches the journey log shown in the log panel.
func WithLogbook(book *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = book
	}
}

// WithLogger routes diagnostics to the debug log.
func WithLogger(l *logging.Logger) AppOption {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithExportDir sets where spreadsheet exports are written.
func WithExportDir(dir string) AppOption {
	return func(a *App) {
		a.exportDir = dir
	}
}

// WithSpellURL sets the spell link pattern shown for the active recipe.
func WithSpellURL(pattern string) AppOption {
	return func(a *App) {
		if strings.TrimSpace(pattern) != "" {
			a.spellURL = pattern
		}
	}
}

// WithClock overrides the clock used for export file names.
func WithClock(now func() time.Time) AppOption {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

// iconsLoadedMsg carries one enrichment batch back to the update loop.
type iconsLoadedMsg struct {
	generation uint64
	recipeID   int
	result     icons.Result
}

type exportKind int

const (
	exportFile exportKind = iota
	exportClipboard
)

type exportFinishedMsg struct {
	kind  exportKind
	path  string
	count int
	err   error
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	engine   *cart.Engine
	enricher *icons.Enricher
	logbook  *logbook.Logbook
	logger   *logging.Logger

	exportDir string
	spellURL  string
	now       func() time.Time

	// UI components
	search     textinput.Model
	multiplier textinput.Model
	focus      focusArea
	cursor     int // suggestion selection
	pinCursor  int // pinned selection
	statusMsg  string

	// icons holds every accepted lookup; iconGen is the engine generation
	// of the selection whose lookup is still welcome.
	icons        map[int]icons.Icon
	iconGen      uint64
	iconsPending bool

	width  int
	height int
}

// NewApp creates the app around engine.
func NewApp(engine *cart.Engine, opts ...AppOption) *App {
	search := textinput.New()
	search.Prompt = "Search › "
	search.Placeholder = "recipe name (2+ letters)"
	search.CharLimit = 64
	search.Cursor.SetMode(cursor.CursorStatic)
	search.Focus()

	mult := textinput.New()
	mult.Prompt = "Craft × "
	mult.CharLimit = 3
	mult.Cursor.SetMode(cursor.CursorStatic)
	mult.SetValue(strconv.Itoa(cart.MinMultiplier))

	a := &App{
		engine:     engine,
		logger:     logging.Discard(),
		spellURL:   recipe.DefaultSpellURL,
		now:        time.Now,
		search:     search,
		multiplier: mult,
		focus:      focusSearch,
		icons:      make(map[int]icons.Icon),
		statusMsg:  "Type to search recipes.",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.search.Width = max(10, msg.Width/2-16)
		return a, nil

	case iconsLoadedMsg:
		a.handleIcons(msg)
		return a, nil

	case exportFinishedMsg:
		a.handleExport(msg)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if a.enricher != nil {
				a.enricher.Cancel()
			}
			return a, tea.Quit
		case "tab":
			a.cycleFocus(1)
			return a, nil
		case "shift+tab":
			a.cycleFocus(-1)
			return a, nil
		}
		switch a.focus {
		case focusSearch:
			return a.updateSearch(msg)
		case focusRecipe:
			return a.updateRecipe(msg)
		case focusPinned:
			return a.updatePinned(msg)
		}
	}
	return a, nil
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	suggestions := a.engine.View().Suggestions
	switch msg.String() {
	case "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil
	case "down":
		if a.cursor < len(suggestions)-1 {
			a.cursor++
		}
		return a, nil
	case "enter":
		if len(suggestions) == 0 {
			a.statusMsg = "No matching recipes."
			return a, nil
		}
		idx := min(a.cursor, len(suggestions)-1)
		return a, a.selectRecipe(suggestions[idx].ID)
	}

	before := a.search.Value()
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	if term := a.search.Value(); term != before {
		found := a.engine.Search(term)
		a.cursor = 0
		switch {
		case len([]rune(term)) < 2:
			a.statusMsg = "Type to search recipes."
		case len(found) == 0:
			a.statusMsg = fmt.Sprintf("No recipes match %q.", term)
		default:
			a.statusMsg = fmt.Sprintf("%d match(es). Enter selects.", len(found))
		}
	}
	return a, cmd
}

func (a *App) updateRecipe(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	active, ok := a.engine.Active()
	if !ok {
		return a, nil
	}
	switch key := msg.String(); key {
	case "+", "=", "right":
		a.applyMultiplier(a.engine.SetMultiplier(active.Multiplier + 1))
	case "-", "left":
		a.applyMultiplier(a.engine.SetMultiplier(active.Multiplier - 1))
	case "p", "enter":
		a.pin()
	case "e":
		return a, a.exportCmd("xlsx")
	case "c":
		return a, a.exportCmd("csv")
	case "y":
		return a, a.copyCmd()
	case "backspace":
		a.multiplier, _ = a.multiplier.Update(msg)
		a.applyTypedMultiplier()
	default:
		if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
			a.multiplier, _ = a.multiplier.Update(msg)
			a.applyTypedMultiplier()
		}
	}
	return a, nil
}

func (a *App) updatePinned(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pinned := a.engine.Pinned()
	switch msg.String() {
	case "up":
		if a.pinCursor > 0 {
			a.pinCursor--
		}
	case "down":
		if a.pinCursor < len(pinned)-1 {
			a.pinCursor++
		}
	case "+", "=", "right":
		a.rescale(pinned, 1)
	case "-", "left":
		a.rescale(pinned, -1)
	case "x", "delete", "backspace":
		a.unpin(pinned)
	case "e":
		return a, a.exportCmd("xlsx")
	case "c":
		return a, a.exportCmd("csv")
	case "y":
		return a, a.copyCmd()
	}
	return a, nil
}

func (a *App) cycleFocus(step int) {
	order := []focusArea{focusSearch, focusRecipe, focusPinned}
	idx := 0
	for i, f := range order {
		if f == a.focus {
			idx = i
		}
	}
	a.focus = order[(idx+step+len(order))%len(order)]
	if a.focus == focusSearch {
		a.search.Focus()
		a.multiplier.Blur()
	} else {
		a.search.Blur()
		if a.focus == focusRecipe {
			a.multiplier.Focus()
		} else {
			a.multiplier.Blur()
		}
	}
}

// selectRecipe makes id active and starts an icon lookup for its reagents.
func (a *App) selectRecipe(id int) tea.Cmd {
	active, err := a.engine.SelectRecipe(id)
	a.iconGen = a.engine.Generation()
	a.iconsPending = false
	a.cursor = 0
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			a.statusMsg = fmt.Sprintf("Recipe %d not found.", id)
		} else {
			a.statusMsg = err.Error()
		}
		return nil
	}
	a.multiplier.SetValue(strconv.Itoa(active.Multiplier))
	a.search.Reset()
	a.focus = focusSearch
	a.cycleFocus(1)
	a.statusMsg = fmt.Sprintf("Selected %s. +/- or digits set the craft count, p pins.", active.Recipe.Name)
	a.logbook.Info("Selected %s (#%d)", active.Recipe.Name, active.Recipe.ID)

	if !a.enricher.Enabled() {
		return nil
	}
	ids := active.Recipe.ItemIDs()
	if len(ids) == 0 {
		return nil
	}
	a.iconsPending = true
	return enrichCmd(a.enricher, a.iconGen, active.Recipe.ID, ids)
}

func enrichCmd(enricher *icons.Enricher, generation uint64, recipeID int, ids []int) tea.Cmd {
	return func() tea.Msg {
		return iconsLoadedMsg{
			generation: generation,
			recipeID:   recipeID,
			result:     enricher.Enrich(context.Background(), generation, ids),
		}
	}
}

func (a *App) handleIcons(msg iconsLoadedMsg) {
	if msg.generation != a.iconGen || msg.result.Stale {
		a.logger.Debugf("dropping icons for recipe %d: generation %d superseded by %d", msg.recipeID, msg.generation, a.iconGen)
		return
	}
	a.iconsPending = false
	for id, icon := range msg.result.Icons {
		a.icons[id] = icon
	}
}

func (a *App) applyTypedMultiplier() {
	raw := a.multiplier.Value()
	updated := a.engine.SetMultiplierText(raw)
	if raw != "" && raw != strconv.Itoa(updated.Multiplier) {
		a.multiplier.SetValue(strconv.Itoa(updated.Multiplier))
	}
}

func (a *App) applyMultiplier(updated cart.ActiveRecipe) {
	a.multiplier.SetValue(strconv.Itoa(updated.Multiplier))
}

func (a *App) pin() {
	pinned, err := a.engine.Pin()
	if err != nil {
		a.statusMsg = "Select a recipe before pinning."
		return
	}
	a.pinCursor = len(a.engine.Pinned()) - 1
	a.statusMsg = fmt.Sprintf("Pinned %s ×%d.", pinned.Name, pinned.Multiplier)
	a.logbook.Info("Pinned %s x%d", pinned.Name, pinned.Multiplier)
}

func (a *App) rescale(pinned []cart.PinnedRecipe, delta int) {
	if a.pinCursor < 0 || a.pinCursor >= len(pinned) {
		return
	}
	updated, err := a.engine.RescalePinned(a.pinCursor, pinned[a.pinCursor].Multiplier+delta)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = fmt.Sprintf("%s now ×%d.", updated.Name, updated.Multiplier)
}

func (a *App) unpin(pinned []cart.PinnedRecipe) {
	if a.pinCursor < 0 || a.pinCursor >= len(pinned) {
		return
	}
	target := pinned[a.pinCursor]
	if err := a.engine.UnpinKey(target.Key); err != nil {
		a.statusMsg = err.Error()
		return
	}
	if remaining := len(pinned) - 1; a.pinCursor >= remaining {
		a.pinCursor = max(0, remaining-1)
	}
	a.statusMsg = fmt.Sprintf("Unpinned %s.", target.Name)
	a.logbook.Info("Unpinned %s", target.Name)
}

// exportCmd writes the shopping list into the export dir as ext (xlsx or csv).
func (a *App) exportCmd(ext string) tea.Cmd {
	entries := a.engine.ShoppingList()
	if len(entries) == 0 {
		a.statusMsg = "Shopping list is empty. Pin a recipe first."
		return nil
	}
	dir := a.exportDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, export.FileName(a.now(), ext))
	a.statusMsg = "Exporting..."
	return func() tea.Msg {
		return exportFinishedMsg{kind: exportFile, path: path, count: len(entries), err: export.File(path, entries)}
	}
}

func (a *App) copyCmd() tea.Cmd {
	entries := a.engine.ShoppingList()
	if len(entries) == 0 {
		a.statusMsg = "Shopping list is empty. Pin a recipe first."
		return nil
	}
	return func() tea.Msg {
		return exportFinishedMsg{kind: exportClipboard, count: len(entries), err: export.Clipboard(entries)}
	}
}

func (a *App) handleExport(msg exportFinishedMsg) {
	if msg.err != nil {
		a.statusMsg = fmt.Sprintf("Export failed: %v", msg.err)
		a.logbook.Error("Export failed: %v", msg.err)
		a.logger.Errorf("export: %v", msg.err)
		return
	}
	switch msg.kind {
	case exportFile:
		a.statusMsg = fmt.Sprintf("Exported %d reagent(s) to %s", msg.count, msg.path)
		a.logbook.Info("Exported shopping list to %s", msg.path)
	case exportClipboard:
		a.statusMsg = fmt.Sprintf("Copied %d reagent(s) to the clipboard.", msg.count)
		a.logbook.Info("Copied shopping list (%d reagents)", msg.count)
	}
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/2-2)
	leftWidth := width - rightWidth - 4
	if leftWidth < 36 {
		leftWidth = width - 4
		rightWidth = 0
	}
	view := a.engine.View()
	left := lipgloss.JoinVertical(lipgloss.Left,
		a.renderSearchPanel(view, leftWidth-4),
		"",
		a.renderRecipePanel(view, leftWidth-4),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		a.renderPinnedPanel(view, max(20, rightWidth-4)),
		"",
		a.renderShoppingPanel(view, max(20, rightWidth-4)),
	)
	return a.renderStatusBoard(left, right, leftWidth, rightWidth)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderStatusBoard(left, right string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("✦ CLASSIC QUEST")
	leftBox := a.box(left, leftWidth, a.focus != focusPinned)
	var body string
	if rightWidth > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, a.box(right, rightWidth, a.focus == focusPinned))
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, leftBox, a.box(right, leftWidth, a.focus == focusPinned))
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg + "\n" + a.helpLine())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) box(content string, width int, focused bool) string {
	border := lipgloss.Color("#444444")
	if focused {
		border = lipgloss.Color("#5B8DEF")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(20, width)).
		Render(content)
}

func (a *App) helpLine() string {
	switch a.focus {
	case focusRecipe:
		return "+/- or digits: craft count · p: pin · e/c: xlsx/csv · y: copy · tab: pinned · esc: quit"
	case focusPinned:
		return "↑/↓: select · +/-: rescale · x: unpin · e/c: xlsx/csv · y: copy · tab: search · esc: quit"
	default:
		return "type: search · ↑/↓: choose · enter: select · tab: recipe · esc: quit"
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5C542"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	linkStyle   = lipgloss.NewStyle().Underline(true).Foreground(lipgloss.Color("#7FB8FF"))
)

func (a *App) renderSearchPanel(view cart.View, width int) string {
	lines := []string{a.search.View()}
	for i, s := range view.Suggestions {
		line := fmt.Sprintf("  %s", s.Name)
		if a.focus == focusSearch && i == a.cursor {
			line = cursorStyle.Render("› " + s.Name)
		}
		lines = append(lines, line)
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderRecipePanel(view cart.View, width int) string {
	if view.Active == nil {
		return mutedStyle.Render("No recipe selected.")
	}
	active := view.Active
	lines := []string{
		titleStyle.Render(active.Recipe.Name),
		linkStyle.Render(active.Recipe.SpellURL(a.spellURL)),
		a.multiplier.View(),
		"",
	}
	for _, r := range active.Reagents() {
		lines = append(lines, fmt.Sprintf("%s (%d) %s", r.Name, r.Quantity, a.iconTag(r.ItemID)))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderPinnedPanel(view cart.View, width int) string {
	lines := []string{titleStyle.Render("Pinned")}
	if len(view.Pinned) == 0 {
		lines = append(lines, mutedStyle.Render("Nothing pinned."))
	}
	for i, p := range view.Pinned {
		line := fmt.Sprintf("  %d. %s ×%d", i+1, p.Name, p.Multiplier)
		if a.focus == focusPinned && i == a.pinCursor {
			line = cursorStyle.Render(fmt.Sprintf("› %d. %s ×%d", i+1, p.Name, p.Multiplier))
		}
		lines = append(lines, line)
		for _, r := range p.Reagents {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("     %s (%d)", r.Name, r.Quantity)))
		}
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (a *App) renderShoppingPanel(view cart.View, width int) string {
	lines := []string{titleStyle.Render("Shopping list")}
	if len(view.ShoppingList) == 0 {
		lines = append(lines, mutedStyle.Render("Pin recipes to build a list."))
	}
	for _, e := range view.ShoppingList {
		lines = append(lines, fmt.Sprintf("%s (%d) %s", e.Name, e.Quantity, a.iconTag(e.ItemID)))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (a *App) iconTag(itemID int) string {
	if icon, ok := a.icons[itemID]; ok && icon.Available() {
		return "[icon]"
	}
	if _, ok := a.icons[itemID]; !ok && a.iconsPending {
		return mutedStyle.Render("[…]")
	}
	return mutedStyle.Render("[no image]")
}
