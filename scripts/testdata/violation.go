package violation

import "os"

const tokenKey = "BCFG_API_TOKEN"

func Violate() string {
	// Violation 1: literal key
	listen := os.Getenv("BCFG_LISTEN")

	// Violation 2: named constant key
	token, _ := os.LookupEnv(tokenKey)

	// Fine: dynamic key
	name := "PATH"
	path := os.Getenv(name)

	// Fine: foreign prefix
	home := os.Getenv("HOME")

	return listen + token + path + home
}
