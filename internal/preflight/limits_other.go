//go:build !unix

package preflight

// CheckDiskSpace is not measured on this platform.
func (c *Checker) CheckDiskSpace(_ string) CheckResult {
	return CheckResult{Name: "disk_space", Status: StatusWarn, Message: "not checked on this platform"}
}

// CheckFileDescriptors is not measured on this platform.
func (c *Checker) CheckFileDescriptors() CheckResult {
	return CheckResult{Name: "file_descriptors", Status: StatusPass, Message: "no limit on this platform"}
}
