package errors

// Kind is a stable, machine-readable identifier of an error class. Kinds are part of the report format and must
// never be renamed.
type Kind string

const (
	KindUnknown             Kind = "unknown"
	KindConfig              Kind = "config"
	KindManifestParse       Kind = "manifest_parse"
	KindMemberNotFound      Kind = "member_not_found"
	KindDuplicatePackage    Kind = "duplicate_package"
	KindCyclicDependency    Kind = "cyclic_dependency"
	KindRevisionNotFound    Kind = "revision_not_found"
	KindRegistryUnavailable Kind = "registry_unavailable"
)

// Exit codes per fatal error class.
const (
	ExitCodeOK                  = 0
	ExitCodeUnexpected          = 1
	ExitCodeConfig              = 2
	ExitCodeCyclicDependency    = 3
	ExitCodeRevisionNotFound    = 4
	ExitCodeRegistryUnavailable = 5
	ExitCodeScanErrors          = 6
)

var kindExitCodes = map[Kind]int{
	KindConfig:              ExitCodeConfig,
	KindManifestParse:       ExitCodeScanErrors,
	KindMemberNotFound:      ExitCodeScanErrors,
	KindDuplicatePackage:    ExitCodeScanErrors,
	KindCyclicDependency:    ExitCodeCyclicDependency,
	KindRevisionNotFound:    ExitCodeRevisionNotFound,
	KindRegistryUnavailable: ExitCodeRegistryUnavailable,
}

// Kinded is implemented by every domain error that belongs to a stable class.
type Kinded interface {
	Kind() Kind
}

// KindOf returns the kind of the first classified error in err's tree, or KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}

	for _, err := range UnwrapMultiErrors(err) {
		var kinded Kinded
		if As(err, &kinded) {
			return kinded.Kind()
		}
	}

	return KindUnknown
}

// ExitCode returns the process exit code for the given error. An explicit ErrorWithExitCode wins over the kind.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeOK
	}

	var withCode ErrorWithExitCode
	if As(err, &withCode) {
		return withCode.ExitCode
	}

	if code, ok := kindExitCodes[KindOf(err)]; ok {
		return code
	}

	return ExitCodeUnexpected
}
