package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/pdbwarm/internal/index"
	"github.com/Zuo-Peng/pdbwarm/internal/scan"
)

func testItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		key := fmt.Sprintf("k%d", i)
		items[i] = Item{
			Key:     key,
			Title:   fmt.Sprintf("item %d", i),
			Detail:  "detail",
			Copy:    "copy " + key,
			Preview: func(int) (string, error) { return "preview " + key, nil },
		}
	}
	return items
}

func update(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(model)
}

func sized(t *testing.T, items []Item) model {
	t.Helper()
	return update(t, initialModel(items, "copy"), tea.WindowSizeMsg{Width: 100, Height: 30})
}

func TestFilterItems(t *testing.T) {
	items := []Item{
		{Title: "chrome.dll", Detail: "generated"},
		{Title: "content.dll", Detail: "retrieval_failed"},
		{Title: "ntdll.dll", Detail: "-"},
	}

	assert.Len(t, filterItems(items, ""), 3)
	assert.Len(t, filterItems(items, "  "), 3)

	got := filterItems(items, "DLL gen")
	require.Len(t, got, 1)
	assert.Equal(t, "chrome.dll", got[0].Title)

	assert.Empty(t, filterItems(items, "missing"))
}

func TestNavigateAndChoose(t *testing.T) {
	m := sized(t, testItems(3))
	assert.True(t, m.ready)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown}) // stays on the last item
	assert.Equal(t, 2, m.cursor)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	require.NotNil(t, m.chosen)
	assert.Equal(t, "copy k1", m.chosen.Copy)
}

func TestEnterWithNoItems(t *testing.T) {
	m := sized(t, nil)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, m.chosen)
	assert.False(t, m.quitting)
}

func TestQuit(t *testing.T) {
	m := sized(t, testItems(2))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, m.quitting)
	assert.Nil(t, m.chosen)
	assert.Empty(t, m.View())
}

func TestTypingFilters(t *testing.T) {
	m := sized(t, testItems(12))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("item 1")})
	assert.Equal(t, "item 1", m.query)
	// item 1, item 10, item 11
	assert.Len(t, m.items, 3)
	assert.Equal(t, 0, m.cursor)
	assert.Len(t, m.all, 12)
	assert.Contains(t, m.statusBar(), "3/12")
}

func TestStalePreviewIgnored(t *testing.T) {
	m := sized(t, testItems(2))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})

	m = update(t, m, previewRenderedMsg{key: "k0", content: "old"})
	assert.Empty(t, m.previewKey)

	msg := m.loadCurrentPreview()()
	m = update(t, m, msg)
	assert.Equal(t, "k1", m.previewKey)
	assert.Contains(t, m.preview.View(), "preview k1")

	// already showing it
	assert.Nil(t, m.loadCurrentPreview())
}

func TestPreviewError(t *testing.T) {
	items := []Item{{Key: "bad", Preview: func(int) (string, error) { return "", errors.New("locked") }}}
	m := sized(t, items)
	m = update(t, m, m.loadCurrentPreview()())
	assert.Contains(t, m.preview.View(), "Preview error: locked")
}

func TestListScroll(t *testing.T) {
	m := initialModel(testItems(50), "")
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 16}) // 10 lines, 5 items
	for range 7 {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	}
	assert.Equal(t, 7, m.cursor)
	assert.Equal(t, 3, m.listOffset)

	out := m.renderList(m.listWidth(), m.panelHeight())
	assert.Contains(t, out, "item 7")
	assert.NotContains(t, out, "item 2\n")
	assert.Len(t, strings.Split(out, "\n"), m.panelHeight())
}

func TestHitTest(t *testing.T) {
	m := sized(t, testItems(5))

	region, idx := m.hitTest(3, 2+2*linesPerItem)
	assert.Equal(t, regionList, region)
	assert.Equal(t, 2, idx)

	region, _ = m.hitTest(m.listWidth()+5, 4)
	assert.Equal(t, regionPreview, region)

	region, _ = m.hitTest(3, 0)
	assert.Equal(t, regionNone, region)
}

func TestMouseClickSelects(t *testing.T) {
	m := sized(t, testItems(5))
	m = update(t, m, tea.MouseMsg{X: 3, Y: 2 + 3*linesPerItem, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, 3, m.cursor)
}

func openTestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.OpenDB(filepath.Join(t.TempDir(), "pdbwarm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunItems(t *testing.T) {
	db := openTestDB(t)
	start := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	id, _, err := index.RecordRun(db, index.RunRecord{
		TracePath:  "/traces/a.etl",
		StartedAt:  start,
		FinishedAt: start.Add(time.Minute),
		Status:     "verification_failed",
		SymbolPath: `c:\tmp\ws`,
		Retained:   true,
		Entries: []index.EntryRow{
			{CachePath: "chrome.dll-aa21v2.symcache", Module: "chrome.dll", GUID: "aa", Age: 33, Source: "local", Outcome: index.OutcomeGenerated},
		},
	})
	require.NoError(t, err)
	_, _, err = index.RecordRun(db, index.RunRecord{TracePath: "/traces/b.etl", StartedAt: start, FinishedAt: start, Status: "cached"})
	require.NoError(t, err)

	runs, err := db.RecentRuns(10)
	require.NoError(t, err)
	items := RunItems(db, runs)
	require.Len(t, items, 2)

	assert.Equal(t, "/traces/b.etl", items[0].Copy)
	retained := items[1]
	assert.Equal(t, fmt.Sprintf("#%d a.etl", id), retained.Title)
	assert.Contains(t, retained.Detail, "retained")
	assert.Equal(t, `set _NT_SYMBOL_PATH=c:\tmp\ws`, retained.Copy)

	out, err := retained.Preview(80)
	require.NoError(t, err)
	assert.Contains(t, out, "chrome.dll")
	assert.Contains(t, out, "aa age 33 local")
}

func TestCacheItems(t *testing.T) {
	db := openTestDB(t)
	path := "/symcache/chrome.dll-aa21v2.symcache"
	_, _, err := index.RecordRun(db, index.RunRecord{
		TracePath: "a.etl",
		Status:    "ok",
		Entries:   []index.EntryRow{{CachePath: path, Module: "chrome.dll", Outcome: index.OutcomeGenerated}},
	})
	require.NoError(t, err)

	files := []scan.FileInfo{
		{Path: path, Module: "chrome.dll", GUID: "aa", Age: 33, Size: 10},
		{Path: "/symcache/ntdll.symcache", Size: 5},
	}
	items := CacheItems(files, db)
	require.Len(t, items, 2)
	assert.Equal(t, "chrome.dll-aa21v2.symcache", items[0].Title)
	assert.Equal(t, path, items[0].Copy)
	assert.True(t, strings.HasPrefix(items[1].Detail, "-  "))

	out, err := items[0].Preview(80)
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger:   generated")

	// without a ledger
	out, err = CacheItems(files, nil)[0].Preview(80)
	require.NoError(t, err)
	assert.NotContains(t, out, "Ledger:")
}
