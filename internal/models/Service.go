package models

import "strings"

// Service is a supported file hosting provider
type Service string

const (
	// ServicePixeldrain uploads to pixeldrain.com
	ServicePixeldrain Service = "pixeldrain"
	// ServiceGofile uploads to gofile.io
	ServiceGofile Service = "gofile"
	// ServiceCatbox uploads to catbox.moe
	ServiceCatbox Service = "catbox"
	// ServiceAnonfiles uploads to anonfiles.com
	ServiceAnonfiles Service = "anonfiles"
	// ServiceFileio uploads to file.io
	ServiceFileio Service = "fileio"
)

// AllServices returns every supported service in the order they are listed to the user
func AllServices() []Service {
	return []Service{ServicePixeldrain, ServiceGofile, ServiceCatbox, ServiceAnonfiles, ServiceFileio}
}

// ParseService returns the service for the given name, ignoring case
func ParseService(name string) (Service, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, service := range AllServices() {
		if string(service) == name {
			return service, true
		}
	}
	return "", false
}

// DisplayName returns the name shown in status messages
func (s Service) DisplayName() string {
	return strings.ToUpper(string(s))
}
