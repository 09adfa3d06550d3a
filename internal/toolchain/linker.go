package toolchain

// LinkMode selects the linker invocation shape.
type LinkMode string

const (
	LinkDriver LinkMode = "driver"
	LinkLD     LinkMode = "ld"
	LinkMSVC   LinkMode = "msvc"
)

// Ninja rule names for executable links.
const (
	RuleLinkExe     = "link_exe"
	RuleLinkExeMSVC = "link_exe_msvc"
)

// Linker is the resolved link-mode variant. The set of implementations is
// closed: DriverLinker, RawLinker and MSVCLinker.
type Linker interface {
	// Rule is the ninja rule used for executable link edges.
	Rule() string
	// Command is the linker binary stored in the $link variable.
	Command() string
	// Flags is the value stored in the $linkflags variable.
	Flags() string

	linker()
}

// DriverLinker links through the C++ compiler driver.
type DriverLinker struct {
	Driver string
	FuseLD string
}

func (l DriverLinker) Rule() string    { return RuleLinkExe }
func (l DriverLinker) Command() string { return l.Driver }
func (l DriverLinker) Flags() string {
	if l.FuseLD == "" {
		return ""
	}
	return "-fuse-ld=" + l.FuseLD
}
func (DriverLinker) linker() {}

// RawLinker invokes a linker binary such as ld directly.
type RawLinker struct {
	Path string
}

func (l RawLinker) Rule() string    { return RuleLinkExe }
func (l RawLinker) Command() string { return l.Path }
func (l RawLinker) Flags() string   { return "" }
func (RawLinker) linker()           {}

// MSVCLinker invokes a Microsoft-style link.exe.
type MSVCLinker struct {
	Path string
}

func (l MSVCLinker) Rule() string    { return RuleLinkExeMSVC }
func (l MSVCLinker) Command() string { return l.Path }
func (l MSVCLinker) Flags() string   { return "" }
func (MSVCLinker) linker()           {}

// Linker resolves the configured link mode. An empty mode means driver; an
// unrecognized mode falls back to the C++ compiler as driver, ignoring
// link_cxx and fuse_ld.
func (tc Toolchain) Linker() Linker {
	switch tc.LinkMode {
	case LinkDriver, "":
		driver := tc.LinkCXX
		if driver == "" {
			driver = tc.CXX
		}
		return DriverLinker{Driver: driver, FuseLD: tc.FuseLD}
	case LinkLD:
		path := tc.Link
		if path == "" {
			path = "ld"
		}
		return RawLinker{Path: path}
	case LinkMSVC:
		path := tc.LinkCXX
		if path == "" {
			path = "link"
		}
		return MSVCLinker{Path: path}
	default:
		return DriverLinker{Driver: tc.CXX}
	}
}
