// Package display renders controller state published on the bus to the
// terminal. It stands in for the case's menu screen, timer and strike LEDs.
package display

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"defusal-go/bus"
	"defusal-go/services/topics"
	"defusal-go/types"
	"defusal-go/x/timex"

	"github.com/pterm/pterm"
)

type Display struct {
	conn    *bus.Connection
	out     io.Writer
	sub     *bus.Subscription
	menuSub *bus.Subscription

	menu    types.MenuView
	session types.SessionView
	peers   []types.PeerView
	status  types.Status
}

// New subscribes a display writing to out; nil means the terminal.
func New(conn *bus.Connection, out io.Writer) *Display {
	return &Display{
		conn:    conn,
		out:     out,
		sub:     conn.Subscribe(bus.T(topics.TokGame, bus.WildAll)),
		menuSub: conn.Subscribe(topics.MenuView),
	}
}

// Run renders until ctx ends or an outcome has been shown.
func (d *Display) Run(ctx context.Context) {
	sub, menuSub := d.sub, d.menuSub
	defer d.conn.Unsubscribe(sub)
	defer d.conn.Unsubscribe(menuSub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-menuSub.Channel():
			if v, ok := msg.Payload.(types.MenuView); ok {
				d.menu = v
				if d.session.Phase == types.PhaseMenu {
					d.print(renderMenu(v))
				}
			}
		case msg := <-sub.Channel():
			if d.apply(msg) {
				return
			}
		}
	}
}

// apply folds one message into the view; it reports true after the outcome.
func (d *Display) apply(msg *bus.Message) bool {
	switch v := msg.Payload.(type) {
	case types.SessionView:
		changed := v.Phase != d.session.Phase
		d.session = v
		if changed || v.Phase == types.PhaseActive {
			d.print(renderSession(v))
		}
	case []types.PeerView:
		d.peers = v
		if len(v) > 0 {
			d.print(renderPeers(v))
		}
	case types.Status:
		if v.Status != d.status.Status {
			d.print(pterm.Info.Sprintln("status: " + v.Status))
		}
		d.status = v
	case types.OutcomeView:
		d.print(renderOutcome(v, d.session))
		return true
	case int:
		if v <= 0 {
			break
		}
		big, err := pterm.DefaultBigText.WithLetters(pterm.NewLettersFromString(strconv.Itoa(v))).Srender()
		if err != nil {
			big = strconv.Itoa(v) + "\n"
		}
		d.print(big)
	}
	return false
}

func (d *Display) print(s string) {
	if d.out == nil {
		pterm.Print(s)
		return
	}
	fmt.Fprint(d.out, s)
}

func renderMenu(v types.MenuView) string {
	row := func(n int, label, value string) string {
		cursor := "  "
		if v.Cursor == n {
			cursor = "> "
		}
		text := cursor + label + value
		if v.Selected == n {
			return pterm.LightYellow(text)
		}
		return text
	}
	body := row(1, "Lives: ", strconv.Itoa(v.Lives)) + "\n" +
		row(2, "Time:  ", v.Time) + "\n" +
		row(3, "START", "")
	return pterm.DefaultBox.WithTitle("Menu").WithTitleTopLeft().Sprintln(body)
}

func renderSession(v types.SessionView) string {
	strikes := ""
	for i := range v.MistakeTrace {
		if i > 0 {
			strikes += " "
		}
		strikes += pterm.LightRed("X")
	}
	return pterm.Sprintfln("[%s] time %s  lives %d  solved %d/%d  %s",
		pterm.LightCyan(string(v.Phase)),
		timex.FormatClock(v.TimeRemaining),
		v.LivesRemaining,
		v.Solved, v.Peers,
		strikes)
}

func renderPeers(peers []types.PeerView) string {
	data := pterm.TableData{{"ID", "Address", "Line", "Type", "Needy", "Ready", "Solved"}}
	for _, p := range peers {
		data = append(data, []string{
			strconv.Itoa(p.ID),
			fmt.Sprintf("0x%02X", p.Addr),
			strconv.Itoa(p.Line),
			p.Type,
			strconv.FormatBool(p.Needy),
			strconv.FormatBool(p.Ready),
			strconv.FormatBool(p.Solved),
		})
	}
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err.Error() + "\n"
	}
	return s + "\n"
}

func renderOutcome(o types.OutcomeView, s types.SessionView) string {
	title := pterm.LightGreen("DEFUSED")
	if o.Outcome != types.OutcomeSuccess {
		title = pterm.LightRed("DETONATED")
	}
	body := fmt.Sprintf("serial %s\nreason %s\ntime left %s\nlives left %d",
		o.Serial, o.Reason, timex.FormatClock(s.TimeRemaining), s.LivesRemaining)
	return pterm.DefaultBox.WithTitle(title).WithHorizontalPadding(4).Sprintln(body)
}
