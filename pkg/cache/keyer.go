package cache

// Keyer builds cache keys. Keys must change whenever anything that affects
// the prepared output changes.
type Keyer interface {
	// PanelKey addresses the panels prepared from one source image.
	PanelKey(sourceHash string, opts PanelKeyOpts) string
}

// PanelKeyOpts holds every preparation setting that changes the output.
type PanelKeyOpts struct {
	Width      int     `json:"w"`
	Height     int     `json:"h"`
	Palette    []uint8 `json:"p,omitempty"`
	Direction  string  `json:"dir"`
	Background string  `json:"bg"`
	Resize     string  `json:"rs"`
	Split      string  `json:"sp"`
	Contrast   float64 `json:"c"`
	Auto       bool    `json:"ac"`
	Dither     string  `json:"di"`
	Version    int     `json:"v"`
}

// DefaultKeyer hashes key options into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// PanelKey returns "panel:<sha256>" over the source hash and options.
func (DefaultKeyer) PanelKey(sourceHash string, opts PanelKeyOpts) string {
	return hashKey("panel", sourceHash, opts)
}
