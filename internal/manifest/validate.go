package manifest

// Kind is the declared package type.
type Kind string

const (
	KindStatic    Kind = "static"
	KindShared    Kind = "shared"
	KindInterface Kind = "interface"
	KindExe       Kind = "exe"
	KindTest      Kind = "test"
)

// Kinds lists every recognized package kind.
var Kinds = []Kind{KindStatic, KindShared, KindInterface, KindExe, KindTest}

// Valid reports whether k is one of the recognized kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Validate checks the package kind and that the package declares sources,
// either explicitly or through discovery.
func Validate(pkg *Package) error {
	if !pkg.Kind().Valid() {
		return &ValidationError{Package: pkg.Name(), Kind: UnsupportedKind, Detail: string(pkg.Kind())}
	}
	if len(pkg.Sources.Files) == 0 && !pkg.Sources.Discovered() {
		return &ValidationError{Package: pkg.Name(), Kind: EmptySources}
	}
	return nil
}
