package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"sisedash/pkg/sisedash"
)

// Styles.
var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("8"))
	codeStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	codeHlStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	gainStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red is up on KRX
	lossStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	colHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	sectionStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highlightBG    = lipgloss.Color("236")
)

// hlStyle returns a copy of s with the highlight background applied when hl is true.
func hlStyle(s lipgloss.Style, hl bool) lipgloss.Style {
	if hl {
		return s.Background(highlightBG)
	}
	return s
}

const (
	nameWidth   = 16
	priceWidth  = 10
	volumeWidth = 13
	perWidth    = 7
	changeWidth = 7
)

func (m model) View() string {
	if !m.ready {
		return "Loading..."
	}

	snap := m.currentSnapshot()
	headerText := fmt.Sprintf(" 거래일자: %s    [%d/%d]    종목: %d ",
		snap.Label, m.snapIdx+1, len(m.snapshots), len(m.rows))
	if m.loading {
		headerText = fmt.Sprintf(" 거래일자: %s    %s 불러오는 중... ", snap.Label, m.spinner.View())
	}
	headerBar := headerStyle.Render(padOrTrunc(headerText, m.width))

	var filterLine string
	if m.filtering {
		filterLine = " " + m.filter.View()
	} else if m.query != "" {
		filterLine = dimStyle.Render(" 종목명 필터: " + m.query)
	} else {
		filterLine = dimStyle.Render(" 종목명 필터: (없음)")
	}

	pct := m.viewport.ScrollPercent() * 100
	footerLeft := " q quit  left/right snapshot  / filter  up/dn select  enter detail  pgup/dn scroll"
	if m.filtering {
		footerLeft = " enter apply  esc cancel"
	}
	footerRight := fmt.Sprintf("%.0f%% ", pct)
	gap := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	if gap < 0 {
		gap = 0
	}
	footerBar := footerStyle.Render(padOrTrunc(footerLeft+strings.Repeat(" ", gap)+footerRight, m.width))

	return headerBar + "\n" + filterLine + "\n" + m.viewport.View() + "\n" + footerBar
}

// renderContent renders the table and returns it with the line index of the
// selected row, or -1 when nothing is selectable.
func (m model) renderContent() (string, int) {
	var b strings.Builder
	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("  " + m.err.Error()))
		b.WriteString("\n")
		return b.String(), -1
	case m.loading && len(m.rows) == 0:
		b.WriteString(dimStyle.Render("  " + m.spinner.View() + " 불러오는 중..."))
		b.WriteString("\n")
		return b.String(), -1
	case len(m.rows) == 0:
		b.WriteString(dimStyle.Render("  (일치하는 종목이 없습니다)"))
		b.WriteString("\n")
		return b.String(), -1
	}

	colLine := "  " + padOrTrunc("종목코드", 8) + " " + padOrTrunc("종목명", nameWidth) +
		padLeft("현재가", priceWidth) + padLeft("시가", priceWidth) +
		padLeft("고가", priceWidth) + padLeft("저가", priceWidth) +
		padLeft("거래량", volumeWidth) + padLeft("PER", perWidth) + padLeft("등락률", changeWidth+1)
	b.WriteString(colHeaderStyle.Render(colLine))
	b.WriteString("\n")

	line := 1
	selLine := -1
	for i, r := range m.rows {
		hl := i == m.selected
		if hl {
			selLine = line
		}
		renderRow(&b, r, hl)
		line++
		if st, open := m.details[r.Code]; open {
			line += renderDetail(&b, r, st, m.width, m.spinner.View())
		}
	}
	return b.String(), selLine
}

func renderRow(b *strings.Builder, r sisedash.Row, hl bool) {
	plain := hlStyle(lipgloss.NewStyle(), hl)
	cs := codeStyle
	if hl {
		cs = codeHlStyle
	}
	b.WriteString(plain.Render("  "))
	b.WriteString(hlStyle(cs, hl).Render(padOrTrunc(r.Code, 8)))
	b.WriteString(plain.Render(" " + padOrTrunc(r.Name, nameWidth)))
	f := r.Formatted
	b.WriteString(plain.Render(
		padLeft(f.Price, priceWidth) + padLeft(f.Open, priceWidth) +
			padLeft(f.High, priceWidth) + padLeft(f.Low, priceWidth) +
			padLeft(f.Volume, volumeWidth) + padLeft(f.PER, perWidth) + " "))
	b.WriteString(hlStyle(changeStyle(r.ChangePct), hl).Render(padLeft(f.Change, changeWidth)))
	b.WriteString("\n")
}

func changeStyle(pct *float64) lipgloss.Style {
	switch {
	case pct == nil:
		return dimStyle
	case *pct > 0:
		return gainStyle
	case *pct < 0:
		return lossStyle
	default:
		return lipgloss.NewStyle()
	}
}

// renderDetail writes the expanded panel of a row and returns the number of
// lines written.
func renderDetail(b *strings.Builder, r sisedash.Row, st *detailState, width int, spin string) int {
	var lines []string
	indent := "      "

	f := r.Formatted
	lines = append(lines,
		indent+codeHlStyle.Render(fmt.Sprintf("%s (%s)", r.Name, r.Code)),
		indent+sectionStyle.Render("주가 정보"),
		indent+fmt.Sprintf("  현재가 %s  %s", f.Price, changeStyle(r.ChangePct).Render(f.Change)),
		indent+fmt.Sprintf("  거래량 %s  PER %s", f.Volume, f.PER),
		indent+sectionStyle.Render("가격 범위"),
		indent+fmt.Sprintf("  시가 %s  고가 %s  저가 %s", f.Open, f.High, f.Low),
	)

	if st.loading {
		lines = append(lines, indent+dimStyle.Render(spin+" 불러오는 중..."))
	} else {
		if st.err != nil {
			lines = append(lines, indent+errStyle.Render(st.err.Error()))
		}
		if st.resp != nil {
			lines = append(lines, indent+sectionStyle.Render("기업 개요"))
			wrapW := width - len(indent) - 2
			if wrapW < 20 {
				wrapW = 20
			}
			summary := lipgloss.NewStyle().Width(wrapW).Render(st.resp.Summary)
			for _, l := range strings.Split(summary, "\n") {
				lines = append(lines, indent+"  "+l)
			}
			lines = append(lines, indent+sectionStyle.Render("관련 뉴스"))
			if len(st.resp.News) == 0 {
				lines = append(lines, indent+dimStyle.Render("  (뉴스 없음)"))
			}
			for _, n := range st.resp.News {
				lines = append(lines, indent+"  - "+padOrTrunc(n.Title, wrapW-2))
				if n.Link != "" {
					lines = append(lines, indent+"    "+dimStyle.Render(padOrTrunc(n.Link, wrapW-2)))
				}
			}
		}
	}
	lines = append(lines, "")

	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	return len(lines)
}

// padOrTrunc pads s with spaces to the given display width, or truncates it
// if wider. Wide (CJK) characters count as two cells.
func padOrTrunc(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w > width {
		s = ansi.Truncate(s, width, "")
		w = lipgloss.Width(s)
	}
	return s + strings.Repeat(" ", width-w)
}

// padLeft right-aligns s within width cells.
func padLeft(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return strings.Repeat(" ", width-w) + s
}
