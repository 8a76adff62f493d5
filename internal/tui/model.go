package tui

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitaminmoo/wxload/internal/api"
	"github.com/vitaminmoo/wxload/internal/config"
	"github.com/vitaminmoo/wxload/internal/firmware"
	"github.com/vitaminmoo/wxload/internal/protocol"
	"github.com/vitaminmoo/wxload/internal/util"
	"github.com/vitaminmoo/wxload/internal/wifi"
)

// View represents different screens in the TUI.
type View int

const (
	ViewMain View = iota
	ViewModules
	ViewModule
	ViewLoad
)

// MenuItem represents a menu option.
type MenuItem struct {
	Title       string
	Description string
	View        View
}

// Actions offered on the module screen, in display order.
const (
	actionRefresh = iota
	actionChipCheck
	actionReset
	actionLoad
)

var moduleActions = []struct{ title, desc string }{
	{"Refresh", "Read the firmware version again"},
	{"Check chip", "Reset the target and ask for its chip version"},
	{"Reset target", "Pulse the target's reset line"},
	{"Load image", "Pick an image file and program the target"},
}

// Model is the main Bubbletea model for the TUI.
type Model struct {
	// State
	view          View
	cursor        int
	cursorHistory map[View]int
	menuItems     []MenuItem
	width         int
	height        int

	settings config.Settings

	// Discovery
	modules   []protocol.ModuleInfo
	searching bool

	// Selected module
	selected   *protocol.ModuleInfo
	client     *api.Client
	version    string
	versionErr string
	busy       bool // a control request is in flight
	chipReply  []byte

	errorMsg  string
	statusMsg string

	// Image load
	imagePath  string
	transfer   ProgressState
	transferCh <-chan tea.Msg

	filepicker       filepicker.Model
	filePickerActive bool

	// Components
	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	styles  Styles
}

// --- Custom messages for async operations ---

// discoverMsg delivers the modules found by a discovery run.
type discoverMsg struct {
	modules []protocol.ModuleInfo
	err     error
}

// versionMsg delivers the firmware version of the selected module.
type versionMsg struct {
	version string
	err     error
}

// resetMsg signals a reset request finished.
type resetMsg struct {
	err error
}

// chipMsg delivers the target's answer to a chip check.
type chipMsg struct {
	reply []byte
	err   error
}

// NewModel creates the TUI model. A non-empty address opens that module
// instead of running discovery.
func NewModel(settings config.Settings, address string) Model {
	h := help.New()
	h.ShowAll = false

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#4EA1FF"))

	m := Model{
		view:          ViewMain,
		cursorHistory: make(map[View]int),
		settings:      settings,
		transfer:      NewProgressState(),
		keys:          DefaultKeyMap(),
		help:          h,
		spinner:       s,
		styles:        DefaultStyles(),
	}

	m.menuItems = []MenuItem{
		{
			Title:       "Modules",
			Description: "Wi-Fi modules found on the local networks",
			View:        ViewModules,
		},
		{
			Title:       "Module",
			Description: "Version, reset and chip check for the selected module",
			View:        ViewModule,
		},
		{
			Title:       "Load",
			Description: "Program the target with an image file",
			View:        ViewLoad,
		},
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".bin", ".binary"}
	fp.DirAllowed = true
	fp.FileAllowed = true
	fp.ShowHidden = false
	fp.ShowSize = true
	fp.ShowPermissions = false
	fp.SetHeight(15)
	if cwd, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = cwd
	} else {
		fp.CurrentDirectory = "."
	}
	m.filepicker = fp

	if address == "" {
		m.searching = true
		return m
	}
	if err := m.bind(protocol.ModuleInfo{Address: address}); err != nil {
		m.errorMsg = err.Error()
		return m
	}
	m.busy = true
	return m
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.client != nil {
		return tea.Batch(fetchVersionCmd(m.client), m.spinner.Tick)
	}
	if m.searching {
		return tea.Batch(discoverCmd(m.settings), m.spinner.Tick)
	}
	return nil
}

// bind points the client at mod, creating it on first use.
func (m *Model) bind(mod protocol.ModuleInfo) error {
	if m.client == nil {
		c, err := api.Dial(mod.Address, api.WithSettings(m.settings))
		if err != nil {
			return err
		}
		if err := c.SetResetMethod(m.settings.ResetMethod); err != nil {
			return err
		}
		m.client = c
	} else {
		m.client.Disconnect()
		if err := m.client.SetAddress(mod.Address); err != nil {
			return err
		}
	}
	m.selected = &mod
	m.version = ""
	m.versionErr = ""
	m.chipReply = nil
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.filePickerActive {
		if msg, ok := msg.(tea.KeyMsg); ok {
			if key.Matches(msg, m.keys.Back) || key.Matches(msg, m.keys.Quit) {
				m.filePickerActive = false
				return m, nil
			}
		}

		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.filePickerActive = false
			return m.startLoad(path)
		}
		if didSelect, _ := m.filepicker.DidSelectDisabledFile(msg); didSelect {
			m.filePickerActive = false
			m.errorMsg = "Invalid file type selected (must be .bin or .binary)"
			return m, nil
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case discoverMsg:
		m.searching = false
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Discovery failed: %v", msg.err)
			return m, nil
		}
		m.modules = msg.modules
		if m.view == ViewModules && m.cursor > m.maxCursor() {
			m.cursor = 0
		}
		if len(m.modules) == 0 {
			m.errorMsg = "No wifi modules found"
			return m, nil
		}
		m.errorMsg = ""
		m.statusMsg = fmt.Sprintf("Found %d module(s)", len(m.modules))
		return m, nil

	case versionMsg:
		m.busy = false
		m.version = msg.version
		m.versionErr = ""
		var verErr *api.VersionError
		switch {
		case errors.As(msg.err, &verErr):
			m.versionErr = fmt.Sprintf("Unsupported firmware, expected %s", verErr.Expected)
		case msg.err != nil:
			m.versionErr = msg.err.Error()
		}
		return m, nil

	case resetMsg:
		m.busy = false
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Reset failed: %v", msg.err)
			return m, nil
		}
		m.errorMsg = ""
		m.statusMsg = "Reset pulse sent"
		return m, nil

	case chipMsg:
		m.busy = false
		m.chipReply = msg.reply
		if msg.err != nil {
			m.errorMsg = fmt.Sprintf("Chip check failed: %v", msg.err)
			return m, nil
		}
		m.errorMsg = ""
		m.statusMsg = "Chip check complete"
		return m, nil

	case progressUpdateMsg:
		m.transfer.Update(msg.sent, msg.total, msg.phase)
		return m, waitForProgress(m.transferCh)

	case progressCompleteMsg:
		m.transfer.Complete()
		m.transferCh = nil
		m.errorMsg = ""
		m.statusMsg = msg.message
		return m, nil

	case progressErrorMsg:
		m.transfer.Cancel()
		m.transferCh = nil
		m.errorMsg = fmt.Sprintf("Load failed: %v", msg.err)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.view == ViewMain {
			return m, tea.Quit
		}
		m.view = ViewMain
		m.cursor = m.cursorHistory[ViewMain]
		return m, nil

	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Left):
		return m.goBack()

	case key.Matches(msg, m.keys.Up):
		m.cursor--
		if m.cursor < 0 {
			m.cursor = m.maxCursor()
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.cursor++
		if m.cursor > m.maxCursor() {
			m.cursor = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.Right):
		return m.handleSelect()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.view == ViewModule && m.client != nil && !m.busy && !m.transfer.IsActive() {
			m.busy = true
			return m, tea.Batch(fetchVersionCmd(m.client), m.spinner.Tick)
		}
		return m.startDiscovery()

	case key.Matches(msg, m.keys.Discover):
		m.cursorHistory[m.view] = m.cursor
		m.view = ViewModules
		m.cursor = 0
		return m.startDiscovery()
	}

	return m, nil
}

func (m Model) startDiscovery() (tea.Model, tea.Cmd) {
	if m.searching {
		return m, nil
	}
	m.searching = true
	m.errorMsg = ""
	m.statusMsg = "Discovering..."
	return m, tea.Batch(discoverCmd(m.settings), m.spinner.Tick)
}

func (m Model) goBack() (tea.Model, tea.Cmd) {
	m.cursorHistory[m.view] = m.cursor

	switch m.view {
	case ViewMain:
		return m, tea.Quit
	case ViewLoad:
		if m.selected != nil {
			m.view = ViewModule
		} else {
			m.view = ViewMain
		}
	default:
		m.view = ViewMain
	}

	m.cursor = m.cursorHistory[m.view]
	return m, nil
}

func (m Model) handleSelect() (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewMain:
		if m.cursor >= len(m.menuItems) {
			return m, nil
		}
		m.cursorHistory[m.view] = m.cursor
		m.view = m.menuItems[m.cursor].View
		m.cursor = m.cursorHistory[m.view]
		if m.cursor > m.maxCursor() {
			m.cursor = 0
		}
		return m, nil

	case ViewModules:
		if m.cursor >= len(m.modules) || m.transfer.IsActive() {
			return m, nil
		}
		if err := m.bind(m.modules[m.cursor]); err != nil {
			m.errorMsg = err.Error()
			return m, nil
		}
		m.cursorHistory[m.view] = m.cursor
		m.view = ViewModule
		m.cursor = 0
		m.busy = true
		m.errorMsg = ""
		m.statusMsg = ""
		return m, tea.Batch(fetchVersionCmd(m.client), m.spinner.Tick)

	case ViewModule:
		if m.client == nil || m.busy || m.transfer.IsActive() {
			return m, nil
		}
		m.errorMsg = ""
		m.statusMsg = ""
		switch m.cursor {
		case actionRefresh:
			m.busy = true
			return m, tea.Batch(fetchVersionCmd(m.client), m.spinner.Tick)
		case actionChipCheck:
			m.busy = true
			m.chipReply = nil
			return m, tea.Batch(chipCheckCmd(m.client), m.spinner.Tick)
		case actionReset:
			m.busy = true
			return m, tea.Batch(resetCmd(m.client), m.spinner.Tick)
		case actionLoad:
			m.cursorHistory[m.view] = m.cursor
			m.view = ViewLoad
			m.cursor = 0
			return m.openPicker()
		}

	case ViewLoad:
		if m.client == nil {
			m.errorMsg = "No module selected"
			return m, nil
		}
		if m.busy || m.transfer.IsActive() {
			return m, nil
		}
		return m.openPicker()
	}

	return m, nil
}

func (m Model) openPicker() (tea.Model, tea.Cmd) {
	m.filePickerActive = true
	return m, m.filepicker.Init()
}

// startLoad begins programming the target with the image at path.
func (m Model) startLoad(path string) (tea.Model, tea.Cmd) {
	if m.client == nil {
		m.errorMsg = "No module selected"
		return m, nil
	}
	ch := make(chan tea.Msg, 8)
	m.imagePath = path
	m.transferCh = ch
	m.transfer.Start(0)
	m.errorMsg = ""
	m.statusMsg = ""
	return m, tea.Batch(loadImageCmd(m.client, path, ch), waitForProgress(ch))
}

func (m Model) maxCursor() int {
	var n int
	switch m.view {
	case ViewMain:
		n = len(m.menuItems)
	case ViewModules:
		n = len(m.modules)
	case ViewModule:
		n = len(moduleActions)
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

// View renders the model.
func (m Model) View() string {
	if m.filePickerActive {
		content := m.styles.Title.Render("Select Image File") + "\n" +
			m.styles.Muted.Render("Directory: "+m.filepicker.CurrentDirectory) + "\n\n" +
			m.filepicker.View() + "\n\n" +
			m.styles.Muted.Render("↑/↓ navigate • Enter/→ select • ←/h parent dir • ESC cancel")
		return m.styles.App.Render(content)
	}

	var content string
	switch m.view {
	case ViewMain:
		content = m.viewMain()
	case ViewModules:
		content = m.viewModules()
	case ViewModule:
		content = m.viewModule()
	case ViewLoad:
		content = m.viewLoad()
	default:
		content = "Unknown view"
	}

	helpView := m.styles.Help.Render(m.help.View(m.keys))
	return m.styles.App.Render(content + "\n" + helpView)
}

func (m Model) viewMain() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar("wxload"))
	b.WriteString("\n")
	b.WriteString(m.renderMessages())
	b.WriteString("\n")

	for i, item := range m.menuItems {
		desc := item.Description
		if item.View == ViewModules {
			desc = fmt.Sprintf("%s (%d found)", item.Description, len(m.modules))
		}
		b.WriteString(m.renderMenuItem(i, item.Title, desc))
	}

	return b.String()
}

func (m Model) viewModules() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar("Modules"))
	b.WriteString("\n")
	b.WriteString(m.renderMessages())
	b.WriteString("\n")

	if len(m.modules) == 0 {
		if m.searching {
			b.WriteString("  " + m.spinner.View() + " Discovering...\n")
		} else {
			b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  No modules found. Press '%s' to search again.", m.keys.Discover.Help().Key)))
			b.WriteString("\n")
		}
		return b.String()
	}

	for i, mod := range m.modules {
		name := mod.Name
		if name == "" {
			name = "(unnamed)"
		}
		title := fmt.Sprintf("%-20s %s", name, mod.Address)
		if m.selected != nil && m.selected.SameModule(mod) {
			title += " " + m.styles.StatusOnline.Render("●")
		}
		b.WriteString(m.renderMenuItem(i, title, "MAC "+mod.MAC))
	}

	return b.String()
}

func (m Model) viewModule() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar("Module"))
	b.WriteString("\n\n")

	if m.selected == nil || m.client == nil {
		b.WriteString(m.styles.Muted.Render("  No module selected. Choose one from Modules."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.styles.Highlight.Render("Details"))
	b.WriteString("\n")
	if m.selected.Name != "" {
		b.WriteString(m.renderField("Name", m.selected.Name))
	}
	b.WriteString(m.renderField("Address", m.selected.Address))
	if m.selected.MAC != "" {
		b.WriteString(m.renderField("MAC", m.selected.MAC))
	}
	switch {
	case m.busy && m.version == "":
		b.WriteString(m.renderField("Version", m.spinner.View()+" loading"))
	case m.version != "":
		b.WriteString(m.renderField("Version", m.version))
	default:
		b.WriteString(m.renderField("Version", api.UnknownVersion))
	}
	if m.versionErr != "" {
		b.WriteString(m.styles.Warning.Render("  " + m.versionErr))
		b.WriteString("\n")
	}
	b.WriteString(m.renderField("Reset pin", strconv.Itoa(m.client.ResetPin())))
	b.WriteString(m.renderField("Loader baud", strconv.Itoa(m.client.LoaderBaudRate())))
	b.WriteString("\n")

	b.WriteString(m.styles.Highlight.Render("Actions"))
	b.WriteString("\n")
	for i, a := range moduleActions {
		b.WriteString(m.renderMenuItem(i, a.title, a.desc))
	}

	if m.busy {
		b.WriteString("  " + m.spinner.View() + " Working...\n")
	}
	if len(m.chipReply) > 0 {
		b.WriteString(m.styles.Reply.Render(formatReply(m.chipReply)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderMessages())

	return b.String()
}

func (m Model) viewLoad() string {
	var b strings.Builder

	b.WriteString(m.renderTitleBar("Load"))
	b.WriteString("\n\n")

	if m.selected == nil {
		b.WriteString(m.styles.Muted.Render("  No module selected. Choose one from Modules."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(m.renderField("Target", m.selected.Address))
	if m.imagePath != "" {
		b.WriteString(m.renderField("Image", m.imagePath))
	}
	b.WriteString("\n")

	if m.transfer.IsActive() {
		b.WriteString(m.transfer.View())
		b.WriteString("\n")
	} else {
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("  Press %s to choose an image file", m.keys.Select.Help().Key)))
		b.WriteString("\n")
	}
	b.WriteString(m.renderMessages())

	return b.String()
}

// renderTitleBar renders a consistent title bar with the module status.
func (m Model) renderTitleBar(title string) string {
	parts := []string{m.styles.Title.Render(title)}

	switch {
	case m.searching:
		parts = append(parts, m.spinner.View()+" "+m.styles.Warning.Render("Discovering..."))
	case m.selected != nil:
		parts = append(parts, m.styles.StatusOnline.Render("●"))
		label := m.selected.Address
		if m.selected.Name != "" {
			label = m.selected.Name + " " + label
		}
		parts = append(parts, m.styles.Muted.Render(label))
		if m.version != "" {
			parts = append(parts, m.styles.Muted.Render(m.version))
		}
	default:
		parts = append(parts, m.styles.StatusOffline.Render("○ No module"))
	}

	return strings.Join(parts, "  ")
}

func (m Model) renderMenuItem(i int, title, desc string) string {
	var b strings.Builder
	if i == m.cursor {
		b.WriteString(m.styles.MenuItemSelected.Render("> " + title))
	} else {
		b.WriteString(m.styles.MenuItem.Render("  " + title))
	}
	b.WriteString("\n")
	if desc != "" {
		b.WriteString(m.styles.MenuItemDim.Render(desc))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderMessages() string {
	var b strings.Builder
	if m.errorMsg != "" {
		b.WriteString(m.styles.Error.Render(m.errorMsg))
		b.WriteString("\n")
	}
	if m.statusMsg != "" {
		b.WriteString(m.styles.Success.Render(m.statusMsg))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderField(label, value string) string {
	return m.styles.Label.Render(label+":") + " " + m.styles.Value.Render(value) + "\n"
}

// formatReply renders a target reply as text, or as hex when binary.
func formatReply(reply []byte) string {
	if util.IsTextData(reply) {
		return strings.TrimSpace(string(reply))
	}
	var b strings.Builder
	util.HexDump(&b, reply)
	return strings.TrimRight(b.String(), "\n")
}

// --- Async commands for module operations ---

// discoverCmd runs discovery with the configured settings.
func discoverCmd(s config.Settings) tea.Cmd {
	return func() tea.Msg {
		mods, err := wifi.FindModules(s.DiscoverPort, wifi.DiscoverOptions{
			Port:         s.DiscoverPort,
			Attempts:     s.DiscoverAttempts,
			ReplyTimeout: s.DiscoverReplyTimeout,
		})
		return discoverMsg{modules: mods, err: err}
	}
}

// fetchVersionCmd reads and checks the module's firmware version.
func fetchVersionCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		err := client.CheckVersion()
		var version string
		if v := client.Version(); v != api.UnknownVersion {
			version = v
		}
		return versionMsg{version: version, err: err}
	}
}

// resetCmd pulses the target's reset line.
func resetCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		return resetMsg{err: client.Reset()}
	}
}

// chipCheckCmd opens the data channel, runs the chip check and closes it.
func chipCheckCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		if err := client.Connect(); err != nil {
			return chipMsg{err: err}
		}
		defer client.Disconnect()
		reply, err := client.CheckChipVersion()
		return chipMsg{reply: reply, err: err}
	}
}

// loadImageCmd programs the target with the image at path, reporting
// progress on ch. ch is closed when the load ends.
func loadImageCmd(client *api.Client, path string, ch chan<- tea.Msg) tea.Cmd {
	return func() tea.Msg {
		defer close(ch)

		img, err := firmware.ReadImage(path)
		if err != nil {
			ch <- progressErrorMsg{err: err}
			return nil
		}
		if err := client.CheckVersion(); err != nil {
			ch <- progressErrorMsg{err: err}
			return nil
		}

		if err := client.Connect(); err != nil {
			ch <- progressErrorMsg{err: err}
			return nil
		}
		err = client.LoadProgram(img.Data, func(current, total int64, phase string) {
			ch <- progressUpdateMsg{sent: current, total: total, phase: phase}
		})
		client.Disconnect()
		if err != nil {
			ch <- progressErrorMsg{err: err}
			return nil
		}
		ch <- progressCompleteMsg{message: fmt.Sprintf("Loaded %s (%d bytes)", img.Name(), img.Size())}
		return nil
	}
}
