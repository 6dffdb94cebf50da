package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"carechat/config"
	"carechat/hospital"
)

// HospitalFinder resolves the user's location and the hospitals around it.
// *hospital.Client satisfies it.
type HospitalFinder interface {
	UserLocation(ctx context.Context) (*hospital.Location, error)
	NearbyHospitals(ctx context.Context, lat, lon float64) ([]hospital.Hospital, error)
}

const (
	collapsedCount = 3
	expandedCount  = 10
)

var rangeLabels = [3]string{"<5km", "5-20km", ">20km"}

type hospitalView struct {
	loading  bool
	err      string
	location *hospital.Location
	groups   *hospital.Groups
	tab      int
	expanded [3]bool
	selected int
	status   string
}

func fetchHospitals(ctx context.Context, finder HospitalFinder) tea.Cmd {
	return func() tea.Msg {
		loc, err := finder.UserLocation(ctx)
		if err != nil || loc == nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Location lookup failed: %v", err)
			}
			return hospitalsLoadedMsg{err: fmt.Errorf("could not determine your location")}
		}

		hs, err := finder.NearbyHospitals(ctx, loc.Latitude, loc.Longitude)
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[UI] Hospital lookup failed: %v", err)
			}
			return hospitalsLoadedMsg{location: loc, err: fmt.Errorf("could not load nearby hospitals")}
		}
		return hospitalsLoadedMsg{location: loc, hospitals: hs}
	}
}

func (h *hospitalView) start() {
	h.loading = true
	h.err = ""
	h.status = ""
}

func (h *hospitalView) loaded(msg hospitalsLoadedMsg) {
	h.loading = false
	if msg.location != nil {
		h.location = msg.location
	}
	if msg.err != nil {
		h.err = msg.err.Error()
		return
	}
	groups := hospital.GroupByRange(msg.hospitals)
	h.groups = &groups
	h.tab = 0
	h.selected = 0
	h.expanded = [3]bool{}
}

func (h *hospitalView) list(tab int) []hospital.Hospital {
	if h.groups == nil {
		return nil
	}
	switch tab {
	case 0:
		return h.groups.Nearby
	case 1:
		return h.groups.Medium
	default:
		return h.groups.Far
	}
}

// shown returns the hospitals displayed on the active tab.
func (h *hospitalView) shown() []hospital.Hospital {
	list := h.list(h.tab)
	limit := collapsedCount
	if h.expanded[h.tab] {
		limit = expandedCount
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (h *hospitalView) selectedHospital() (hospital.Hospital, bool) {
	shown := h.shown()
	if h.selected < len(shown) {
		return shown[h.selected], true
	}
	return hospital.Hospital{}, false
}

// handleKey processes a key while the finder is open. closed reports that
// the user left the view.
func (h *hospitalView) handleKey(ctx context.Context, finder HospitalFinder, msg tea.KeyMsg) (cmd tea.Cmd, closed bool) {
	switch msg.String() {
	case "esc", "q":
		return nil, true

	case "r", "f":
		if h.loading {
			return nil, false
		}
		h.start()
		return fetchHospitals(ctx, finder), false

	case "enter":
		if h.groups == nil && !h.loading {
			h.start()
			return fetchHospitals(ctx, finder), false
		}
		return h.copyDirections(), false

	case "c":
		return h.copyDirections(), false

	case "left", "h":
		if h.tab > 0 {
			h.tab--
			h.selected = 0
		}

	case "right", "l":
		if h.tab < len(rangeLabels)-1 {
			h.tab++
			h.selected = 0
		}

	case "up", "k":
		if h.selected > 0 {
			h.selected--
		}

	case "down", "j":
		if h.selected < len(h.shown())-1 {
			h.selected++
		}

	case "e":
		h.expanded[h.tab] = !h.expanded[h.tab]
		if h.selected >= len(h.shown()) {
			h.selected = 0
		}
	}
	return nil, false
}

func (h *hospitalView) copyDirections() tea.Cmd {
	hosp, ok := h.selectedHospital()
	if !ok || h.location == nil {
		return nil
	}
	link := hospital.DirectionsURL(*h.location, hosp)
	h.status = "Directions: " + link
	return func() tea.Msg {
		return clipboardMsg{what: "Directions link", err: clipboard.WriteAll(link)}
	}
}

func (h hospitalView) view(spinner string, width, height int) string {
	boxWidth := 72
	if width < boxWidth+4 {
		boxWidth = width - 4
	}

	var b strings.Builder
	b.WriteString(HighlightStyle.Render("Nearby Hospitals"))
	b.WriteString("\n")
	b.WriteString(DimStyle.Render("Find hospitals near your location"))
	b.WriteString("\n")
	if h.location != nil {
		b.WriteString(DimStyle.Render(fmt.Sprintf("Current location: %s, %s", h.location.City, h.location.Region)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if h.err != "" {
		b.WriteString(ErrorStyle.Render(h.err))
		b.WriteString("\n\n")
	}

	switch {
	case h.loading:
		b.WriteString(spinner + " Looking up hospitals...")
	case h.groups == nil:
		b.WriteString("Press Enter to find nearby hospitals")
	default:
		b.WriteString(h.renderTabs())
		b.WriteString("\n\n")
		b.WriteString(h.renderList(boxWidth))
	}

	if h.status != "" {
		b.WriteString("\n\n")
		b.WriteString(DimStyle.Render(truncate(h.status, boxWidth)))
	}

	b.WriteString("\n\n")
	b.WriteString(FormatFooter("h/l", "Range", "j/k", "Select", "c", "Copy directions", "e", "More", "r", "Refresh", "Esc", "Back"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(1, 2).
		Width(boxWidth).
		Render(b.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

func (h hospitalView) renderTabs() string {
	var tabs []string
	for i, label := range rangeLabels {
		text := fmt.Sprintf(" %s (%d) ", label, len(h.list(i)))
		if i == h.tab {
			text = SelectedStyle.Render("[" + text + "]")
		} else {
			text = DimStyle.Render(" " + text + " ")
		}
		tabs = append(tabs, text)
	}
	return strings.Join(tabs, " ")
}

func (h hospitalView) renderList(width int) string {
	list := h.list(h.tab)
	if len(list) == 0 {
		return DimStyle.Render("No hospitals found in this range")
	}

	shown := h.shown()
	var lines []string
	for i, hosp := range shown {
		name := truncate(hosp.Name, width-2)
		if i == h.selected {
			lines = append(lines, SelectedStyle.Render("> "+name))
		} else {
			lines = append(lines, "  "+TitleStyle.Render(name))
		}
		lines = append(lines, DimStyle.Render("  "+truncate(hosp.Address, width-2)))
		lines = append(lines, DimStyle.Render(fmt.Sprintf("  %.1f km away", hosp.Distance)))
	}

	switch {
	case h.expanded[h.tab] && len(list) > collapsedCount:
		lines = append(lines, "", DimStyle.Render("Show less (e)"))
	case len(list) > len(shown):
		lines = append(lines, "", DimStyle.Render(fmt.Sprintf("Show %d more (e)", len(list)-len(shown))))
	}
	return strings.Join(lines, "\n")
}
