package browser

// Page is the surface workflows drive. Every operation that waits on
// the page carries an explicit timeout in milliseconds; timing out is
// reported as an error and the caller decides whether absence is
// fatal.
type Page interface {
	// Navigate navigates to the specified URL.
	Navigate(url string, opts NavigateOptions) error

	// WaitFor waits for an element to reach the requested state.
	WaitFor(opts WaitOptions) error

	// Click clicks the element matching the selector.
	Click(opts ClickOptions) error

	// Fill fills an input element with the specified value.
	Fill(opts FillOptions) error

	// Press sends a single key press to the element.
	Press(opts PressOptions) error

	// Enabled reports whether the matching element is enabled.
	Enabled(selector string) (bool, error)

	// Upload clicks the trigger element and feeds the file to the
	// file chooser it opens. The click and the wait for the chooser
	// are raced together so neither can be missed.
	Upload(opts UploadOptions) error

	// Reload reloads the current page.
	Reload(opts NavigateOptions) error

	// Content returns the full HTML of the current page.
	Content() (string, error)

	// URL returns the current page URL.
	URL() string

	// Pause blocks for the given number of milliseconds.
	Pause(ms float64)
}

// Handle is one live browser bound to a profile directory. A handle
// is exclusively owned by the worker driving it until closed.
type Handle interface {
	// ID is the unique identifier the registry tracks the browser by.
	ID() string

	// Name is the account or session name the browser was opened for.
	Name() string

	// Page returns the handle's page.
	Page() Page

	// Close shuts the browser down gracefully.
	Close() error

	// Kill force terminates the underlying browser process. Used when
	// Close fails; the browser is never left running.
	Kill() error
}

// Launcher opens browsers bound to persistent profile directories.
type Launcher interface {
	Launch(name, profileDir string, opts SessionOptions) (Handle, error)
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window
	Headless bool

	// Viewport sets the initial viewport size
	Viewport *Viewport

	// SlowMo slows every driver operation by this many milliseconds
	SlowMo float64

	// Args are extra command line arguments for the browser process
	Args []string

	// LaunchTimeout bounds browser startup (in milliseconds)
	LaunchTimeout float64

	// DefaultTimeout sets the default timeout for page operations (in milliseconds)
	DefaultTimeout float64
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil specifies when to consider navigation successful
	// Valid values: "load", "domcontentloaded", "networkidle"
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// WaitOptions configures waiting behavior.
type WaitOptions struct {
	// Selector to wait for
	Selector string

	// State to wait for: "attached", "detached", "visible", "hidden"
	State string

	// Timeout in milliseconds
	Timeout float64
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	// Selector identifies the element to click
	Selector string

	// Timeout in milliseconds
	Timeout float64
}

// FillOptions configures form input filling.
type FillOptions struct {
	// Selector identifies the input element
	Selector string

	// Value is the text to fill
	Value string

	// Timeout in milliseconds
	Timeout float64
}

// PressOptions configures a key press on an element.
type PressOptions struct {
	// Selector identifies the element receiving the key
	Selector string

	// Key is the key name, e.g. "Enter"
	Key string

	// Timeout in milliseconds
	Timeout float64
}

// UploadOptions configures a file upload through a file chooser.
type UploadOptions struct {
	// TriggerSelector identifies the element whose click opens the chooser
	TriggerSelector string

	// FilePath is the local file handed to the chooser
	FilePath string

	// Timeout in milliseconds, applied to both the click and the chooser wait
	Timeout float64
}

// Default values for various operations
const (
	DefaultTimeout        = 30000.0 // 30 seconds in milliseconds
	DefaultLaunchTimeout  = 45000.0 // 45 seconds in milliseconds
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)
