// Package terraform inspects the Terraform configuration and state the
// deployment tooling leaves behind: required files, declared resources and
// outputs, and the live state exposed by `terraform show -json`.
package terraform

import (
	"fmt"
	"os"
	"path/filepath"
)

// RequiredConfigFiles are the configuration files every deployment must ship.
var RequiredConfigFiles = []string{
	"main.tf",
	"variables.tf",
	"outputs.tf",
	"providers.tf",
}

// StateFileName is the local state file written by terraform apply.
const StateFileName = "terraform.tfstate"

// CheckDir verifies the Terraform directory exists and is a directory.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("terraform directory does not exist at %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// CheckFile verifies a path is an existing, non-empty regular file.
func CheckFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("required file %s does not exist: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// CheckRequiredFiles verifies all required configuration files in dir.
func CheckRequiredFiles(dir string) error {
	if err := CheckDir(dir); err != nil {
		return err
	}
	for _, name := range RequiredConfigFiles {
		if err := CheckFile(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

// CheckStateFile verifies terraform was initialized and applied.
func CheckStateFile(dir string) error {
	path := filepath.Join(dir, StateFileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("terraform state file does not exist at %s, terraform may not have been applied: %w", path, err)
	}
	return nil
}

// CheckExecutable verifies a path is an existing file with execute permission.
func CheckExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("script does not exist at %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a file", path)
	}
	if info.Mode().Perm()&0111 == 0 {
		return fmt.Errorf("%s is not executable", path)
	}
	return nil
}
