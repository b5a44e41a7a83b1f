package helper

/**
Simplified OS functions
*/

import (
	"os"

	"github.com/shirou/gopsutil/v4/disk"
)

// FolderExists returns true if a folder exists
func FolderExists(folder string) bool {
	_, err := os.Stat(folder)
	if err == nil {
		return true
	}
	return !os.IsNotExist(err)
}

// FileExists returns true if a file exists
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// CreateDir creates the folder if it does not exist
func CreateDir(name string) {
	if !FolderExists(name) {
		err := os.MkdirAll(name, 0770)
		Check(err)
	}
}

// GetFreeSpace returns the free space in bytes available to the current user on the given path
func GetFreeSpace(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Check panics if error is not nil
func Check(e error) {
	if e != nil {
		panic(e)
	}
}

// IsInArray returns true if value is in array
func IsInArray(haystack []string, needle string) bool {
	for _, item := range haystack {
		if needle == item {
			return true
		}
	}
	return false
}
