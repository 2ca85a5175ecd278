package workspace

import (
	"fmt"

	"github.com/relplan/relplan/internal/errors"
)

// ScanError is a non-fatal failure tied to one path. The path is excluded from the scan result.
type ScanError struct {
	Err  error
	Path string
}

func (err *ScanError) Error() string {
	return fmt.Sprintf("%s: %v", err.Path, err.Err)
}

func (err *ScanError) Unwrap() error {
	return err.Err
}

func (err *ScanError) Kind() errors.Kind {
	return errors.KindOf(err.Err)
}

// MemberNotFoundError is returned when a workspace lists a member without a package manifest.
type MemberNotFoundError struct {
	Root   string
	Member string
}

func (err MemberNotFoundError) Error() string {
	return fmt.Sprintf("workspace %s lists member %q but no package manifest was found there", err.Root, err.Member)
}

func (MemberNotFoundError) Kind() errors.Kind {
	return errors.KindMemberNotFound
}

// DuplicatePackageError is returned when two paths declare the same package name.
type DuplicatePackageError struct {
	Name      string
	Path      string
	FirstPath string
}

func (err DuplicatePackageError) Error() string {
	return fmt.Sprintf("package %q at %s is already declared at %s", err.Name, err.Path, err.FirstPath)
}

func (DuplicatePackageError) Kind() errors.Kind {
	return errors.KindDuplicatePackage
}

// NestedWorkspaceError is returned when a workspace lists another workspace root as a member.
type NestedWorkspaceError struct {
	Root   string
	Member string
}

func (err NestedWorkspaceError) Error() string {
	return fmt.Sprintf("workspace %s lists %s as a member, but %s is a workspace root itself", err.Root, err.Member, err.Member)
}

func (NestedWorkspaceError) Kind() errors.Kind {
	return errors.KindManifestParse
}
