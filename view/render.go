// Package view renders hub events for a terminal.
// Everything derived from an identity (initial, avatar colour) is a pure function of the name.
package view

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"fmt"
	"hash/fnv"
	"io"
	"unicode"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const anonymous = "?"

// Avatar palette, in lookup order.
var palette = []color.RGBColor{
	color.HEX("#FFC107"), // amber
	color.HEX("#2196F3"), // blue
	color.HEX("#795548"), // brown
	color.HEX("#00BCD4"), // cyan
	color.HEX("#4CAF50"), // green
	color.HEX("#3F51B5"), // indigo
	color.HEX("#CDDC39"), // lime
	color.HEX("#FF9800"), // orange
	color.HEX("#E91E63"), // pink
	color.HEX("#9C27B0"), // purple
	color.HEX("#F44336"), // red
	color.HEX("#009688"), // teal
	color.HEX("#FFEB3B"), // yellow
}

// Initial is the upper-cased first letter of the name.
func Initial(name domain.Identity) string {
	for _, r := range name.String() {
		if unicode.IsSpace(r) {
			continue
		}
		return string(unicode.ToUpper(r))
	}
	return anonymous
}

// PaletteIndex maps a name to a stable slot of the avatar palette.
func PaletteIndex(name domain.Identity) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return int(h.Sum32() % uint32(len(palette)))
}

func AvatarColor(name domain.Identity) color.RGBColor {
	return palette[PaletteIndex(name)]
}

// Renderer writes one line per event and the participant table on demand.
type Renderer struct {
	out     io.Writer
	colours bool
}

func NewRenderer(out io.Writer, colours bool) *Renderer {
	return &Renderer{out: out, colours: colours}
}

// Line formats an event without a trailing newline.
// Join and leave notices are system lines, chat messages carry the author's avatar.
func (r *Renderer) Line(e event.Event) string {
	at := e.OccurredAt().Format("15:04:05")
	who := e.Identity()
	switch evt := e.(type) {
	case event.Joined:
		return fmt.Sprintf("[%s] %s", at, r.system(fmt.Sprintf("%s has joined the chat.", who)))
	case event.Left:
		return fmt.Sprintf("[%s] %s", at, r.system(fmt.Sprintf("%s has left the chat.", who)))
	case event.ChatMessage:
		return fmt.Sprintf("[%s] %s %s: %s", at, r.avatar(who), r.bold(who.String()), evt.Text)
	default:
		return fmt.Sprintf("[%s] %s", at, who)
	}
}

func (r *Renderer) Event(e event.Event) {
	_, _ = fmt.Fprintln(r.out, r.Line(e))
}

func (r *Renderer) Error(code, message string) {
	line := fmt.Sprintf("! %s: %s", code, message)
	if r.colours {
		line = color.FgRed.Render(line)
	}
	_, _ = fmt.Fprintln(r.out, line)
}

// Participants prints the distinct identities currently in the chat.
func (r *Renderer) Participants(identities []domain.Identity) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"", "Participant"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.AppendBulk(lo.Map(identities, func(id domain.Identity, _ int) []string {
		return []string{Initial(id), id.String()}
	}))
	table.Render()
	_, _ = fmt.Fprintf(r.out, "%d online\n", len(identities))
}

func (r *Renderer) avatar(name domain.Identity) string {
	initial := "(" + Initial(name) + ")"
	if !r.colours {
		return initial
	}
	return AvatarColor(name).Sprint(initial)
}

func (r *Renderer) system(text string) string {
	if !r.colours {
		return text
	}
	return color.New(color.OpItalic, color.FgGray).Render(text)
}

func (r *Renderer) bold(text string) string {
	if !r.colours {
		return text
	}
	return color.OpBold.Render(text)
}
