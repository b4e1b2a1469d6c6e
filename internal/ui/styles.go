package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// IsTTY indicates whether stdout is an interactive terminal.
// When false, UI functions produce plain text without colors or decorations.
var IsTTY = term.IsTerminal(os.Stdout.Fd())

// ═══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE
// ═══════════════════════════════════════════════════════════════════════════════

var (
	Gold   = lipgloss.Color("#F4D03F")
	Copper = lipgloss.Color("#DC7633")

	Purple  = lipgloss.Color("#9B59B6")
	Blue    = lipgloss.Color("#5DADE2")
	Cyan    = lipgloss.Color("#76D7C4")
	Green   = lipgloss.Color("#58D68D")
	Emerald = lipgloss.Color("#27AE60")
	Pink    = lipgloss.Color("#FF6B9D")
	Magenta = lipgloss.Color("#E91E8C")

	White    = lipgloss.Color("#FDFEFE")
	Gray     = lipgloss.Color("#AAB7B8")
	DarkGray = lipgloss.Color("#5D6D7E")
	Black    = lipgloss.Color("#1C2833")
)

// ═══════════════════════════════════════════════════════════════════════════════
// TEXT STYLES
// ═══════════════════════════════════════════════════════════════════════════════

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Gold)

	Error = lipgloss.NewStyle().
		Foreground(Pink).
		Bold(true)

	Muted = lipgloss.NewStyle().
		Foreground(Gray)

	Highlight = lipgloss.NewStyle().
		Foreground(Gold).
		Bold(true)

	// Code/command style
	Code = lipgloss.NewStyle().
		Foreground(Magenta)
)

// ═══════════════════════════════════════════════════════════════════════════════
// BADGES
// ═══════════════════════════════════════════════════════════════════════════════

var baseBadge = lipgloss.NewStyle().
	Padding(0, 1).
	Bold(true)

type badgeStyle struct {
	bg, fg lipgloss.Color
}

var typeBadges = map[string]badgeStyle{
	"openapi":   {Blue, White},
	"api-index": {Cyan, Black},
	"db-schema": {Emerald, White},
	"bpmn":      {Copper, White},
	"skill":     {Purple, White},
	"doc":       {Gray, Black},
}

// TypeBadge returns the badge for an artifact type
func TypeBadge(t string) string {
	label := strings.ToUpper(t)
	if !IsTTY {
		return "[" + label + "]"
	}
	s, ok := typeBadges[t]
	if !ok {
		s = badgeStyle{DarkGray, White}
	}
	return baseBadge.Background(s.bg).Foreground(s.fg).Render(label)
}

var statusBadges = map[string]struct {
	plain, icon string
	bg          lipgloss.Color
}{
	"ok":         {"[OK]", "✓", Green},
	"updated":    {"[UPD]", "UPD", Gold},
	"missing":    {"[MISSING]", "✗ MISSING", Pink},
	"drift":      {"[DRIFT]", "! DRIFT", Copper},
	"unrecorded": {"[NEW]", "NEW", Cyan},
	"create":     {"[NEW]", "NEW", Cyan},
	"update":     {"[UPD]", "UPD", Gold},
	"remove":     {"[DEL]", "DEL", Pink},
	"unchanged":  {"[OK]", "✓", Green},
	"conflict":   {"[SKIP]", "! SKIP", Copper},
	"enabled":    {"[ON]", "ON", Green},
	"disabled":   {"[OFF]", "OFF", DarkGray},
}

// StatusBadge returns the badge for a check or sync status
func StatusBadge(status string) string {
	b, ok := statusBadges[status]
	if !ok {
		if !IsTTY {
			return "[" + strings.ToUpper(status) + "]"
		}
		return baseBadge.Background(DarkGray).Foreground(White).Render(strings.ToUpper(status))
	}
	if !IsTTY {
		return b.plain
	}
	fg := White
	if b.bg == Gold {
		fg = Black
	}
	return baseBadge.Background(b.bg).Foreground(fg).Render(b.icon)
}

// ═══════════════════════════════════════════════════════════════════════════════
// HEADERS & TABLES
// ═══════════════════════════════════════════════════════════════════════════════

// SectionHeader creates a decorated section header
func SectionHeader(title string) string {
	if !IsTTY {
		return fmt.Sprintf("=== %s ===", title)
	}

	width := TerminalWidth()
	if width > 80 {
		width = 80
	}
	titleLen := lipgloss.Width(title)
	padLeft := (width - titleLen - 6) / 2
	padRight := width - titleLen - 6 - padLeft
	if padLeft < 1 {
		padLeft, padRight = 1, 1
	}

	left := lipgloss.NewStyle().Foreground(DarkGray).Render(strings.Repeat("─", padLeft) + "┤ ")
	right := lipgloss.NewStyle().Foreground(DarkGray).Render(" ├" + strings.Repeat("─", padRight))
	return left + Title.Render(title) + right
}

// Table renders rows under a header with columns padded to their widest
// cell. Cells may already carry styling; widths ignore escape codes.
func Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	headerCells := make([]string, len(header))
	for i, h := range header {
		headerCells[i] = Render(Title, pad(h, widths[i]))
	}
	b.WriteString(strings.TrimRight(strings.Join(headerCells, "  "), " "))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(widths) {
				cell = pad(cell, widths[i])
			}
			cells[i] = cell
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteString("\n")
	}
	return b.String()
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATUS LINE COMPONENTS
// ═══════════════════════════════════════════════════════════════════════════════

// StatusLine creates a status line with icon and message
func StatusLine(icon, message string, color lipgloss.Color) string {
	if !IsTTY {
		return fmt.Sprintf("  %s %s", icon, message)
	}
	iconStyled := lipgloss.NewStyle().Foreground(color).Render(icon)
	msgStyled := lipgloss.NewStyle().Foreground(color).Render(message)
	return fmt.Sprintf("  %s %s", iconStyled, msgStyled)
}

// SuccessLine creates a success status line
func SuccessLine(message string) string {
	if !IsTTY {
		return fmt.Sprintf("  OK: %s", message)
	}
	return StatusLine("✓", message, Green)
}

// ErrorLine creates an error status line
func ErrorLine(message string) string {
	if !IsTTY {
		return fmt.Sprintf("  ERROR: %s", message)
	}
	return StatusLine("✗", message, Pink)
}

// WarningLine creates a warning status line
func WarningLine(message string) string {
	if !IsTTY {
		return fmt.Sprintf("  WARN: %s", message)
	}
	return StatusLine("!", message, Copper)
}

// InfoLine creates an info status line
func InfoLine(message string) string {
	if !IsTTY {
		return fmt.Sprintf("  %s", message)
	}
	return StatusLine("→", message, Blue)
}

// EmptyRegistry is shown when no artifacts are registered
func EmptyRegistry() string {
	hint := "ctxkit add-artifact --id <id> --type <type> --path <path>"
	if !IsTTY {
		return fmt.Sprintf("\n  (no artifacts registered)\n  Use `%s` to track one.\n", hint)
	}
	message := Muted.Render("No artifacts registered yet.")
	return fmt.Sprintf("\n  %s\n  Use %s to track one.\n", message, Code.Render(hint))
}

// ═══════════════════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ═══════════════════════════════════════════════════════════════════════════════

// Truncate truncates text to max runes with an ellipsis
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max || max < 4 {
		return text
	}
	return string(runes[:max-3]) + "..."
}

// Render applies a lipgloss style to text, returning plain text in non-TTY environments.
func Render(style lipgloss.Style, text string) string {
	if !IsTTY {
		return text
	}
	return style.Render(text)
}

// RenderMuted renders text in muted style (TTY-aware)
func RenderMuted(text string) string {
	return Render(Muted, text)
}

// RenderHighlight renders text in highlight style (TTY-aware)
func RenderHighlight(text string) string {
	return Render(Highlight, text)
}

// RenderError renders text in error style (TTY-aware)
func RenderError(text string) string {
	return Render(Error, text)
}

// TerminalWidth returns the current terminal width, defaulting to 80 if unknown
func TerminalWidth() int {
	w, _, err := term.GetSize(os.Stdout.Fd())
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
