package validate

import (
	"testing"
)

// BenchmarkValidatorNotEmpty benchmarks NotEmpty validation
func BenchmarkValidatorNotEmpty(b *testing.B) {
	v := New()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.NotEmpty("field", "value")
		v.Clear()
	}
}

// BenchmarkValidatorRange benchmarks Range validation
func BenchmarkValidatorRange(b *testing.B) {
	v := New()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.Range("port", 8080, 1, 65535)
		v.Clear()
	}
}

// BenchmarkValidatorOneOf benchmarks OneOf validation
func BenchmarkValidatorOneOf(b *testing.B) {
	v := New()
	allowed := []string{"simulator", "device", "catalyst", "appletvos", "appletvsimulator"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.OneOf("target_environment", "appletvsimulator", allowed)
		v.Clear()
	}
}

// BenchmarkValidatorMultipleChecks benchmarks realistic validation scenario
func BenchmarkValidatorMultipleChecks(b *testing.B) {
	v := New()
	allowed := []string{"memory", "redis", "none"}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.NotEmpty("listen", "127.0.0.1:8080")
		v.Range("port", 8080, 1, 65535)
		v.OneOf("cache", "memory", allowed)
		v.Positive("debounce", 500)
		v.Clear()
	}
}

// BenchmarkValidatorWithErrors benchmarks validator with errors
func BenchmarkValidatorWithErrors(b *testing.B) {
	v := New()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		v.NotEmpty("field", "") // Will fail
		v.Range("port", 99999, 1, 65535)
		v.OneOf("env", "bogus", []string{"simulator", "device"})
		_ = v.Errors()
		v.Clear()
	}
}
