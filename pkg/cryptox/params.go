package cryptox

// Configuration for Argon2id hashing and key derivation.
const (
	memory      = 19 * 1024 // Memory usage in KiB (19 MiB)
	iterations  = 2         // Iteration count
	parallelism = 1         // Number of threads
	keyLength   = 32        // Length of the generated hash / derived key
	saltLength  = 16        // Length of the salt
)
