package widget

import (
	"sync"

	"github.com/openclaw/pageqr/store"
)

// Element IDs every presenter must use. Stylesheets target these.
const (
	IDSafeArea          = "qr-safe-area"
	IDFloatingLogo      = "floating-logo"
	IDContainer         = "qr-container"
	IDCode              = "qr-code"
	IDControlsContainer = "controls-container"
	IDToggleLogoButton  = "toggle-logo-btn"
	IDTitleContainer    = "title-container"
	IDCopyTooltip       = "copy-tooltip"
	IDSiteName          = "site-name"
	IDPageTitle         = "page-title"
	IDSiteSecure        = "site-secure"
)

// ViewState is everything a presenter needs to draw the widget.
type ViewState struct {
	Settings store.Settings `json:"settings"`
	// Icon is the favicon source of the floating button.
	Icon     string `json:"icon"`
	SiteName string `json:"siteName"`
	Title    string `json:"title"`
	Secure   bool   `json:"secure"`

	// Active is set while the pointer is inside the safe area.
	Active   bool `json:"active"`
	Expanded bool `json:"expanded"`

	// HasContainer is false until the first generation starts.
	HasContainer bool   `json:"hasContainer"`
	Visible      bool   `json:"visible"`
	Generating   bool   `json:"generating"`
	QRText       string `json:"qrText,omitempty"`
	QRImage      string `json:"qrImage,omitempty"`
	Message      string `json:"message,omitempty"`
	ToggleLabel  string `json:"toggleLabel"`

	Tooltip        string `json:"tooltip,omitempty"`
	TooltipVisible bool   `json:"tooltipVisible"`
}

// Presenter draws a ViewState. Update is called after every state change
// while mounted.
type Presenter interface {
	Mount(state ViewState) error
	Unmount()
	Update(state ViewState)
}

// SnapshotPresenter keeps the most recent ViewState in memory.
type SnapshotPresenter struct {
	mu      sync.Mutex
	mounted bool
	state   ViewState
	updates int
}

// NewSnapshotPresenter returns an unmounted SnapshotPresenter.
func NewSnapshotPresenter() *SnapshotPresenter {
	return &SnapshotPresenter{}
}

func (p *SnapshotPresenter) Mount(state ViewState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = true
	p.state = state
	return nil
}

func (p *SnapshotPresenter) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mounted = false
}

func (p *SnapshotPresenter) Update(state ViewState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = state
	p.updates++
}

// Snapshot returns the last state and whether the presenter is mounted.
func (p *SnapshotPresenter) Snapshot() (ViewState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, p.mounted
}

// Updates returns how many times Update was called.
func (p *SnapshotPresenter) Updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updates
}
