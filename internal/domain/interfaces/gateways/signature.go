package gateways

// SignatureVerifier checks detached signatures of local files
type SignatureVerifier interface {
	// VerifyFile verifies sigPath as a detached signature over dataPath and
	// returns the signer's identity
	VerifyFile(dataPath, sigPath string) (string, error)
}

// ChecksumVerifier pins local files to a known digest
type ChecksumVerifier interface {
	// VerifyChecksum fails when the file's SHA256 differs from expectedSum
	VerifyChecksum(filePath, expectedSum string) error
}
