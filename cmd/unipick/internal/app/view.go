// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2026 Solomon Gao. All rights reserved.

package app

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/SolomonGao/UniPick-sub000/internal/feed"
	"github.com/SolomonGao/UniPick-sub000/pkg/models"
)

// --- Styles ---

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF7F32"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FF7F32"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF7F32")).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444466")).
			Padding(0, 1)
)

// View renders the full-screen TUI.
func (m Model) View() tea.View {
	if m.width == 0 {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	var s string
	switch m.state {
	case stateLogin:
		s = m.viewLogin()
	case stateFeed:
		s = m.viewFeed()
	case stateDetail:
		s = m.viewDetail()
	case stateSell:
		s = m.viewSell()
	case stateProfile:
		s = m.viewProfile()
	case stateModeration:
		s = m.viewModeration()
	case stateError:
		s = m.viewError()
	}

	v := tea.NewView(s)
	v.AltScreen = true
	return v
}

// --- Full-screen views ---

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  UNIPICK"))
	b.WriteString(dimStyle.Render("  campus marketplace"))
	b.WriteString("\n\n")
	if m.signupMode {
		b.WriteString(valueStyle.Render("  Create account"))
	} else {
		b.WriteString("  Sign in")
	}
	b.WriteString("\n\n")

	b.WriteString("  Email:    ")
	b.WriteString(m.loginEmail)
	if m.loginField == 0 {
		b.WriteString("█")
	}
	b.WriteString("\n")
	b.WriteString("  Password: ")
	b.WriteString(strings.Repeat("•", len(m.loginPass)))
	if m.loginField == 1 {
		b.WriteString("█")
	}
	b.WriteString("\n\n")

	if m.authBusy {
		if m.signupMode {
			b.WriteString(dimStyle.Render("  creating account..."))
		} else {
			b.WriteString(dimStyle.Render("  signing in..."))
		}
		b.WriteString("\n\n")
	} else if m.authErr != "" {
		b.WriteString(errStyle.Render("  " + m.authErr))
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render("  [tab] switch field  [enter] submit  [ctrl+t] toggle sign up"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  [ctrl+b] browse as guest  [esc] quit"))
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("  UNIPICK"))
	b.WriteString("\n\n")
	if err := m.ctrl.Err(); err != nil {
		b.WriteString(errStyle.Render("  ERROR: " + err.Error()))
	} else {
		b.WriteString(errStyle.Render("  ERROR: feed unavailable"))
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("  [r] retry  [q/esc] quit"))
	return b.String()
}

func (m Model) viewFeed() string {
	if m.filterMode {
		return m.splitView(m.renderFeedPanel, m.renderFilterPanel)
	}
	return m.splitView(m.renderFeedPanel, m.renderFeedMenuPanel)
}

func (m Model) viewDetail() string {
	return m.splitView(m.renderDetailPanel, m.renderDetailMenuPanel)
}

func (m Model) viewSell() string {
	if len(m.sPlaces) > 0 {
		return m.splitView(m.renderSellPanel, m.renderPlacePickerPanel)
	}
	return m.splitView(m.renderSellPanel, m.renderSellHelpPanel)
}

func (m Model) viewProfile() string {
	switch {
	case m.profileEdit:
		return m.splitView(m.renderProfilePanel, m.renderProfileEditPanel)
	case m.avatarMode:
		return m.splitView(m.renderProfilePanel, m.renderAvatarPanel)
	case m.passMode:
		return m.splitView(m.renderProfilePanel, m.renderPasswordPanel)
	}
	return m.splitView(m.renderProfilePanel, m.renderProfileMenuPanel)
}

func (m Model) viewModeration() string {
	if m.noteMode {
		return m.splitView(m.renderModQueuePanel, m.renderReviewNotePanel)
	}
	return m.splitView(m.renderModQueuePanel, m.renderModMenuPanel)
}

// splitView splits the terminal into two bordered panels stacked vertically.
// topFn and botFn receive the inner width available to their panel.
func (m Model) splitView(
	topFn func(innerW, maxLines int) string,
	botFn func(innerW, maxLines int) string,
) string {
	// Border overhead: 2 vertical borders (top+bottom) + 2 padding lines each side
	borderH := 2
	topHeight := m.height/2 - borderH
	if topHeight < 4 {
		topHeight = 4
	}
	botHeight := m.height - (topHeight + borderH*2) - borderH
	if botHeight < 3 {
		botHeight = 3
	}

	// Inner width: border (1 each side) + padding (1 each side) = 4 chars
	innerW := m.width - 4
	if innerW < 20 {
		innerW = 20
	}

	topContent := topFn(innerW, topHeight)
	botContent := botFn(innerW, botHeight)

	topBox := panelStyle.Width(innerW).Render(topContent)
	botBox := panelStyle.Width(innerW).Render(botContent)

	return topBox + "\n" + botBox
}

// --- Panel renderers (signature: innerW, maxLines int) string ---

func (m Model) renderFeedPanel(innerW, maxLines int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Feed"))
	b.WriteString(dimStyle.Render("  " + filterSummary(m.ctrl.Filters())))
	b.WriteString("\n")

	used := 1
	if m.locNotice != "" {
		b.WriteString(warnStyle.Render(m.locNotice) + dimStyle.Render("  [x] dismiss"))
		b.WriteString("\n")
		used++
	}

	items := m.ctrl.Items()
	status := m.ctrl.Status()

	if len(items) == 0 {
		switch status {
		case feed.StatusIdle, feed.StatusLoading:
			b.WriteString(dimStyle.Render("loading feed..."))
		case feed.StatusError:
			if err := m.ctrl.Err(); err != nil {
				b.WriteString(errStyle.Render("feed failed: " + err.Error()))
				b.WriteString("\n")
				b.WriteString(dimStyle.Render("[r] retry"))
			}
		default:
			b.WriteString(dimStyle.Render("No listings match. Press / to change filters."))
		}
		return b.String()
	}

	avail := maxLines - used - 2
	if avail < 1 {
		avail = 1
	}
	start := window(len(items), m.feedIdx, avail)
	for i := start; i < len(items) && i < start+avail; i++ {
		b.WriteString(m.feedLine(items[i], i == m.feedIdx, innerW))
		b.WriteString("\n")
	}

	switch {
	case status == feed.StatusLoadingMore:
		b.WriteString(dimStyle.Render("loading more..."))
	case status == feed.StatusError:
		if err := m.ctrl.Err(); err != nil {
			b.WriteString(errStyle.Render("couldn't load more: "+err.Error()) + dimStyle.Render("  [r] retry"))
		}
	case !m.ctrl.Cursor().HasMore:
		b.WriteString(dimStyle.Render("end of feed"))
	}

	return b.String()
}

func (m Model) feedLine(it models.ItemSummary, selected bool, innerW int) string {
	var meta []string
	if it.Category != "" {
		meta = append(meta, it.Category)
	}
	if it.Distance != nil {
		meta = append(meta, fmtMiles(*it.Distance))
	}
	if it.CreatedAt != nil {
		meta = append(meta, fmtAge(*it.CreatedAt))
	}
	metaStr := strings.Join(meta, " · ")

	if selected {
		line := fmt.Sprintf(" ▸ %-8s %s", fmtPrice(it.Price), it.Title)
		if metaStr != "" {
			line += "  " + metaStr
		}
		return selectedStyle.Render(clip(line, innerW))
	}
	line := "   " + valueStyle.Render(fmt.Sprintf("%-8s", fmtPrice(it.Price))) + " " + clip(it.Title, 40)
	if metaStr != "" {
		line += dimStyle.Render("  " + metaStr)
	}
	return line
}

func (m Model) renderFeedMenuPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Menu"))
	b.WriteString("\n\n")

	n := len(m.ctrl.Items())
	status := fmt.Sprintf("%s loaded, sorted by %s",
		valueStyle.Render(fmt.Sprintf("%d listings", n)),
		valueStyle.Render(m.ctrl.EffectiveSort()))
	if m.ctrl.Cursor().HasMore {
		status += dimStyle.Render("  (more available)")
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	b.WriteString(dimStyle.Render("[↑/↓ or k/j] browse  [enter] open  [/] filter  [r] refresh"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[s] sell  [p] profile  [m] moderation  [q] quit"))

	m.writeLog(&b)
	return b.String()
}

func (m Model) renderFilterPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Filter"))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Keyword", m.fKeyword},
		{"Min price", m.fMin},
		{"Max price", m.fMax},
		{"Category", "◂ " + categoryOptions[m.fCatIdx] + " ▸"},
		{"Radius mi", m.fRadius},
		{"Sort by", "◂ " + sortOptions[m.fSortIdx] + " ▸"},
		{"Near me", "◂ " + onOff(m.fUseLoc) + " ▸"},
		{"Apply", ""},
		{"Clear all", ""},
	}
	for i, row := range rows {
		b.WriteString(m.formRow(row.label, row.value, i == m.filterField, isTextRow(i, filterKeyword, filterMinPrice, filterMaxPrice, filterRadius)))
		b.WriteString("\n")
	}

	if m.filterErr != "" {
		b.WriteString(errStyle.Render(m.filterErr))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("[↑/↓] field  [◂/▸] cycle  [enter] apply  [esc] cancel"))
	return b.String()
}

func (m Model) renderDetailPanel(innerW, maxLines int) string {
	var b strings.Builder
	if m.detail == nil {
		b.WriteString(titleStyle.Render("Listing"))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("loading listing..."))
		return b.String()
	}

	it := m.detail
	b.WriteString(titleStyle.Render(it.Title))
	b.WriteString("  ")
	b.WriteString(valueStyle.Render(fmtPrice(it.Price)))
	b.WriteString("\n")

	var meta []string
	if it.Category != "" {
		meta = append(meta, it.Category)
	}
	if it.LocationName != "" {
		meta = append(meta, it.LocationName)
	}
	if it.Distance != nil {
		meta = append(meta, fmtMiles(*it.Distance)+" away")
	}
	if it.CreatedAt != nil {
		meta = append(meta, "posted "+fmtAge(*it.CreatedAt))
	}
	if len(meta) > 0 {
		b.WriteString(dimStyle.Render(strings.Join(meta, " · ")))
		b.WriteString("\n")
	}

	if s := m.detailStats; s != nil {
		line := fmt.Sprintf("%s views · %s favorites", valueStyle.Render(fmt.Sprintf("%d", s.ViewCount)),
			valueStyle.Render(fmt.Sprintf("%d", s.FavoriteCount)))
		if s.IsFavorited {
			line += warnStyle.Render("  ♥ favorited")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	used := 5
	for _, line := range wrap(it.Description, innerW-2) {
		if used >= maxLines-1 {
			b.WriteString(dimStyle.Render("..."))
			break
		}
		b.WriteString(line)
		b.WriteString("\n")
		used++
	}

	if len(it.Images) > 0 && used < maxLines-1 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d image(s): %s", len(it.Images), clip(it.Images[0], innerW-16))))
	}

	return b.String()
}

func (m Model) renderDetailMenuPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Actions"))
	b.WriteString("\n\n")

	if m.confirmDel {
		b.WriteString(errStyle.Render("Delete this listing? [y] confirm  [esc] cancel"))
		m.writeLog(&b)
		return b.String()
	}

	keys := "[f] favorite  [esc] back"
	if m.ownsDetail() {
		keys = "[f] favorite  [e] edit  [d] delete  [esc] back"
	} else if m.isAdmin() {
		keys = "[f] favorite  [d] delete  [esc] back"
	}
	b.WriteString(dimStyle.Render(keys))

	m.writeLog(&b)
	return b.String()
}

func (m Model) renderSellPanel(innerW, _ int) string {
	var b strings.Builder
	if m.editingID != 0 {
		b.WriteString(titleStyle.Render(fmt.Sprintf("Edit Listing #%d", m.editingID)))
	} else {
		b.WriteString(titleStyle.Render("New Listing"))
	}
	b.WriteString("\n\n")

	category := categoryOptions[m.sCatIdx]
	if m.sCatIdx == 0 {
		category = "(none)"
	}
	location := m.sLocQuery
	if m.sLocName != "" && m.sCoord != nil {
		location = fmt.Sprintf("%s (%.4f, %.4f)", m.sLocName, m.sCoord.Lat, m.sCoord.Lng)
	}
	rows := []struct {
		label string
		value string
	}{
		{"Title", m.sTitle},
		{"Price", m.sPrice},
		{"Category", "◂ " + category + " ▸"},
		{"Description", m.sDesc},
		{"Location", location},
		{"Images", m.sImages},
		{"Publish", ""},
	}
	for i, row := range rows {
		b.WriteString(m.formRow(row.label, row.value, i == m.sellField && !m.sellBusy,
			isTextRow(i, sellTitle, sellPrice, sellDescription, sellLocation, sellImages)))
		b.WriteString("\n")
	}

	if m.sellBusy {
		b.WriteString(dimStyle.Render("publishing..."))
	} else if m.sellErr != "" {
		b.WriteString(errStyle.Render(m.sellErr))
	}
	return b.String()
}

func (m Model) renderSellHelpPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Help"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Location: type a place and press enter to search."))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Images: comma-separated file paths or URLs. Local files upload on publish."))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("[↑/↓] field  [◂/▸] category  [enter] next/submit  [esc] back"))

	m.writeLog(&b)
	return b.String()
}

func (m Model) renderPlacePickerPanel(innerW, maxLines int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Pick a Location"))
	b.WriteString("\n\n")

	avail := maxLines - 4
	if avail < 1 {
		avail = 1
	}
	start := window(len(m.sPlaces), m.sPlaceIdx, avail)
	for i := start; i < len(m.sPlaces) && i < start+avail; i++ {
		p := m.sPlaces[i]
		line := fmt.Sprintf("%s  (%.4f, %.4f)", p.Name, p.Coord.Lat, p.Coord.Lng)
		if i == m.sPlaceIdx {
			b.WriteString(selectedStyle.Render(clip(" ▸ "+line, innerW)))
		} else {
			b.WriteString("   " + clip(line, innerW-3))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[↑/↓] choose  [enter] pick  [esc] dismiss"))
	return b.String()
}

func (m Model) renderProfilePanel(innerW, maxLines int) string {
	var b strings.Builder
	tabs := []string{"info", "favorites", "history"}
	b.WriteString(titleStyle.Render("Profile"))
	b.WriteString("  ")
	for i, t := range tabs {
		if i == m.profileTab {
			b.WriteString(selectedStyle.Render(" " + t + " "))
		} else {
			b.WriteString(dimStyle.Render(" " + t + " "))
		}
	}
	b.WriteString("\n\n")

	if m.profileTab == tabInfo {
		m.writeProfileInfo(&b)
		return b.String()
	}

	items := m.profileItems()
	if len(items) == 0 {
		if m.profileTab == tabFavorites {
			b.WriteString(dimStyle.Render("No favorites yet."))
		} else {
			b.WriteString(dimStyle.Render("No viewed listings yet."))
		}
		return b.String()
	}
	avail := maxLines - 3
	if avail < 1 {
		avail = 1
	}
	start := window(len(items), m.profileIdx, avail)
	for i := start; i < len(items) && i < start+avail; i++ {
		b.WriteString(m.feedLine(items[i], i == m.profileIdx, innerW))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) writeProfileInfo(b *strings.Builder) {
	p := m.profile
	if p == nil {
		b.WriteString(dimStyle.Render("loading profile..."))
		return
	}
	role := ""
	if p.IsAdmin() {
		role = warnStyle.Render("  [admin]")
	}
	b.WriteString(fmt.Sprintf("Username:    %s%s\n", valueStyle.Render(orDash(p.Username)), role))
	b.WriteString(fmt.Sprintf("Full name:   %s\n", valueStyle.Render(orDash(p.FullName))))
	b.WriteString(fmt.Sprintf("Email:       %s\n", valueStyle.Render(orDash(p.Email))))
	b.WriteString(fmt.Sprintf("Campus:      %s\n", valueStyle.Render(orDash(p.Campus))))
	b.WriteString(fmt.Sprintf("University:  %s\n", valueStyle.Render(orDash(p.University))))
	b.WriteString(fmt.Sprintf("Phone:       %s %s\n", valueStyle.Render(orDash(p.Phone)), dimStyle.Render("(shown: "+onOff(p.ShowPhone)+")")))
	b.WriteString(fmt.Sprintf("Bio:         %s\n", orDash(p.Bio)))
	b.WriteString(fmt.Sprintf("Emails:      %s\n", onOff(p.NotificationEmail)))
	if p.AvatarURL != "" {
		b.WriteString(dimStyle.Render("Avatar:      " + p.AvatarURL))
		b.WriteString("\n")
	}
	if m.profileErr != "" {
		b.WriteString(errStyle.Render(m.profileErr))
	}
}

func (m Model) renderProfileMenuPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Actions"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("[tab] switch tab  [enter] open listing  [r] reload"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[e] edit  [a] avatar  [w] password  [o] sign out  [esc] back"))

	m.writeLog(&b)
	return b.String()
}

func (m Model) renderProfileEditPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Edit Profile"))
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Username", m.pUsername},
		{"Full name", m.pFullName},
		{"Bio", m.pBio},
		{"Phone", m.pPhone},
		{"Campus", m.pCampus},
		{"University", m.pUniversity},
		{"Email notifications", "◂ " + onOff(m.pNotify) + " ▸"},
		{"Show phone", "◂ " + onOff(m.pShowPhone) + " ▸"},
		{"Save", ""},
	}
	for i, row := range rows {
		b.WriteString(m.formRow(row.label, row.value, i == m.profField && !m.profileBusy,
			isTextRow(i, profUsername, profFullName, profBio, profPhone, profCampus, profUniversity)))
		b.WriteString("\n")
	}

	if m.profileBusy {
		b.WriteString(dimStyle.Render("saving..."))
	} else if m.profileErr != "" {
		b.WriteString(errStyle.Render(m.profileErr))
	}
	return b.String()
}

func (m Model) renderAvatarPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Upload Avatar"))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("> "))
	b.WriteString(m.avatarPath)
	b.WriteString("█")
	b.WriteString("\n\n")
	if m.profileBusy {
		b.WriteString(dimStyle.Render("uploading..."))
	} else if m.profileErr != "" {
		b.WriteString(errStyle.Render(m.profileErr))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("image file path (jpg, png, webp or gif)  [enter] upload  [esc] cancel"))
	return b.String()
}

func (m Model) renderPasswordPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Change Password"))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("> "))
	b.WriteString(strings.Repeat("•", len(m.passInput)))
	b.WriteString("█")
	b.WriteString("\n\n")
	if m.profileBusy {
		b.WriteString(dimStyle.Render("saving..."))
	} else if m.profileErr != "" {
		b.WriteString(errStyle.Render(m.profileErr))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("[enter] save  [esc] cancel"))
	return b.String()
}

func (m Model) renderModQueuePanel(innerW, maxLines int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Moderation"))
	if s := m.modStats; s != nil {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  total:%d  pending:%d  flagged:%d  rejected:%d  approved:%d",
			s.Total, s.Pending, s.Flagged, s.Rejected, s.Approved)))
	}
	b.WriteString("\n")
	for i, f := range modFilters {
		if i == m.modFilter {
			b.WriteString(selectedStyle.Render(" " + string(f) + " "))
		} else {
			b.WriteString(dimStyle.Render(" " + string(f) + " "))
		}
	}
	b.WriteString("\n\n")

	if len(m.modEntries) == 0 {
		b.WriteString(dimStyle.Render("Queue is empty."))
		return b.String()
	}

	avail := maxLines - 5
	if avail < 1 {
		avail = 1
	}
	start := window(len(m.modEntries), m.modIdx, avail)
	for i := start; i < len(m.modEntries) && i < start+avail; i++ {
		b.WriteString(m.modLine(m.modEntries[i], i == m.modIdx, innerW))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) modLine(e models.ModerationEntry, selected bool, innerW int) string {
	who := e.UserEmail
	if who == "" {
		who = e.UserID
	}
	plain := fmt.Sprintf("#%d %s %.2f %q by %s", e.ID, e.ContentType, e.MaxScore, clip(e.ContentText, 40), who)
	if selected {
		return selectedStyle.Render(clip(" ▸ "+plain, innerW))
	}
	tag := dimStyle
	switch e.Status {
	case models.ModerationFlagged:
		tag = errStyle
	case models.ModerationPending:
		tag = warnStyle
	}
	return "   " + tag.Render(string(e.Status)) + " " + clip(plain, innerW-14)
}

func (m Model) renderModMenuPanel(innerW, _ int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Review"))
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("[tab] queue filter  [↑/↓] select  [a] approve  [x] reject"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("[r] reload  [esc] back"))

	m.writeLog(&b)
	return b.String()
}

func (m Model) renderReviewNotePanel(innerW, _ int) string {
	var b strings.Builder
	if m.decision == models.ModerationApproved {
		b.WriteString(titleStyle.Render("Approve"))
	} else {
		b.WriteString(errStyle.Render("Reject"))
	}
	b.WriteString(dimStyle.Render("  optional review note"))
	b.WriteString("\n\n")
	b.WriteString(promptStyle.Render("> "))
	b.WriteString(m.noteInput)
	b.WriteString("█")
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("[enter] submit  [esc] cancel"))
	return b.String()
}

// writeLog appends the last few activity lines to a panel.
func (m Model) writeLog(b *strings.Builder) {
	if len(m.notes) == 0 {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(dimStyle.Render("Log:"))
	b.WriteString("\n")
	start := 0
	if len(m.notes) > 3 {
		start = len(m.notes) - 3
	}
	for _, e := range m.notes[start:] {
		style := dimStyle
		if e.isErr {
			style = errStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("  [%s] %s", e.ts, e.text)))
		b.WriteString("\n")
	}
}

// formRow renders one label/value form row. Text rows get a cursor
// block when focused.
func (m Model) formRow(label, value string, focused, textRow bool) string {
	if focused && textRow {
		value += "█"
	}
	if focused {
		return selectedStyle.Render(fmt.Sprintf(" ▸ %-14s", label)) + " " + value
	}
	return "   " + dimStyle.Render(fmt.Sprintf("%-14s", label)) + " " + value
}

// --- Formatting helpers ---

func fmtPrice(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("$%.0f", p)
	}
	return fmt.Sprintf("$%.2f", p)
}

func fmtMiles(mi float64) string {
	if mi < 10 {
		return fmt.Sprintf("%.1f mi", mi)
	}
	return fmt.Sprintf("%.0f mi", mi)
}

func fmtAge(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func clip(s string, w int) string {
	if w < 4 {
		w = 4
	}
	if len(s) <= w {
		return s
	}
	return s[:w-3] + "..."
}

// window returns the first index of the visible slice so the selection
// stays on screen.
func window(n, sel, avail int) int {
	if n <= avail || sel < avail {
		return 0
	}
	start := sel - avail + 1
	if start > n-avail {
		start = n - avail
	}
	return start
}

func wrap(s string, w int) []string {
	if w < 8 {
		w = 8
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= w:
				line += " " + word
			default:
				lines = append(lines, line)
				line = word
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func filterSummary(f feed.FilterState) string {
	var parts []string
	if f.Keyword != "" {
		parts = append(parts, "\""+f.Keyword+"\"")
	}
	if f.Category != "" {
		parts = append(parts, string(f.Category))
	}
	switch {
	case f.MinPrice != nil && f.MaxPrice != nil:
		parts = append(parts, fmt.Sprintf("%s-%s", fmtPrice(*f.MinPrice), fmtPrice(*f.MaxPrice)))
	case f.MinPrice != nil:
		parts = append(parts, fmtPrice(*f.MinPrice)+"+")
	case f.MaxPrice != nil:
		parts = append(parts, "under "+fmtPrice(*f.MaxPrice))
	}
	if f.UseLocation {
		parts = append(parts, fmt.Sprintf("within %.0f mi", f.RadiusMi))
	}
	if len(parts) == 0 {
		return "all listings"
	}
	return strings.Join(parts, " · ")
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// isTextRow reports whether row i is one of the free-text rows.
func isTextRow(i int, rows ...int) bool {
	for _, r := range rows {
		if r == i {
			return true
		}
	}
	return false
}
