package environment

/**
Variables that are set during build
*/

// BuildTime is the time of the build (auto-generated value)
var BuildTime = "Dev Build"

// Builder is the name of builder (auto-generated value)
var Builder = "Manual Build"

// Version is the current version in readable form
var Version = "1.0.0"
