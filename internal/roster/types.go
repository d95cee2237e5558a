// Package roster holds the installed-application package table: the
// in-memory map of AppPackage keyed by app id, version-ordering/ranking
// between competing candidates for the same id, locale-aware asset path
// rewriting, and change-event emission through internal/fanout. The
// RWMutex-guarded map idiom is grounded on
// internal/dependency adjacency-map (safe for concurrent reads from
// multiple request-serving goroutines while writes are serialized).
package roster

// AppType is the runtime family an AppPackage belongs to.
type AppType string

// AppType values, grounded on original_source's AppType enum.
const (
	AppTypeWeb            AppType = "web"
	AppTypeStub           AppType = "stub"
	AppTypeNative         AppType = "native"
	AppTypeNativeBuiltin  AppType = "nativeBuiltin"
	AppTypeNativeMvpd     AppType = "nativeMvpd"
	AppTypeNativeQml      AppType = "nativeQml"
	AppTypeNativeAppShell AppType = "nativeAppShell"
	AppTypeQml            AppType = "qml"
)

// TypeByDir records which install location an AppPackage was scanned
// from; it both documents provenance and breaks version ties.
type TypeByDir string

// TypeByDir values in ascending tie-break priority (higher wins),
// per the version-ordering rule below.
const (
	TypeByDirSystemBuiltIn   TypeByDir = "systemBuiltIn"
	TypeByDirSystemUpdatable TypeByDir = "systemUpdatable"
	TypeByDirStore           TypeByDir = "store"
	TypeByDirExternalStore   TypeByDir = "externalStore"
	TypeByDirDev             TypeByDir = "dev"
)

// typeByDirRank is the ascending tie-break order; higher wins.
var typeByDirRank = map[TypeByDir]int{
	TypeByDirSystemBuiltIn:   0,
	TypeByDirSystemUpdatable: 1,
	TypeByDirStore:           2,
	TypeByDirExternalStore:   3,
	TypeByDirDev:             4,
}

// HandlerKind selects which Lifecycle Handler drives an AppPackage.
type HandlerKind string

// HandlerKind values.
const (
	HandlerKindNone   HandlerKind = "none"
	HandlerKindWeb    HandlerKind = "web"
	HandlerKindQml    HandlerKind = "qml"
	HandlerKindNative HandlerKind = "native"
)

// Version is the u16 major/minor/micro triple.
type Version struct {
	Major, Minor, Micro uint16
}

// WindowGroup captures window-group ownership, used by closeAll ordering.
type WindowGroup struct {
	Enabled bool
	IsOwner bool
	Name    string
}

// Redirection is a Stub package's rewrite target, parsed from the
// package's redirection.ini sidecar (see redirection.go).
type Redirection struct {
	ID string
}

// AppPackage is one installed application, immutable after construction
// except for Locked and FlaggedForRemoval.
type AppPackage struct {
	AppID      string
	FolderPath string

	AppType              AppType
	TypeByDir            TypeByDir
	HandlerKind          HandlerKind
	Main                 string
	Title                string
	Version              Version
	TrustLevel           string
	DefaultWindowType    string
	WindowGroup          WindowGroup
	Removable            bool
	Visible              bool
	BuiltinBased         bool
	SplashOnLaunch       bool
	SpinnerOnLaunch      bool
	RequiredMemory       int
	NativeInterfaceVer   int
	Redirection          *Redirection

	Locked             bool
	FlaggedForRemoval  bool
}
