// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package net

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateDeviceHost(t *testing.T) {
	baseAllow := DeviceAllowlist{
		Hosts: []string{"192.0.2.10"},
		CIDRs: []string{},
		Ports: []int{22, 2222},
	}

	cases := []struct {
		name     string
		policy   DevicePolicy
		raw      string
		want     string
		wantErr  bool
		errMatch func(error) bool
	}{
		// === Fail-closed behavior ===
		{
			name:    "disabled",
			policy:  DevicePolicy{Enabled: false, Allow: baseAllow},
			raw:     "192.0.2.10",
			wantErr: true,
			errMatch: func(err error) bool {
				return errors.Is(err, ErrDeployDisabled)
			},
		},
		{
			name:    "empty host",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "   ",
			wantErr: true,
		},
		// === Allowed hosts ===
		{
			name:   "allowed host default port",
			policy: DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:    "192.0.2.10",
			want:   "192.0.2.10:22",
		},
		{
			name:   "allowed host explicit port",
			policy: DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:    "192.0.2.10:2222",
			want:   "192.0.2.10:2222",
		},
		{
			name: "allowed host normalizes trailing dot",
			policy: DevicePolicy{Enabled: true, Allow: DeviceAllowlist{
				Hosts: []string{"192.0.2.10"},
			}},
			raw:  "192.0.2.10.",
			want: "192.0.2.10:22",
		},
		{
			name: "cidr allows lab subnet",
			policy: DevicePolicy{Enabled: true, Allow: DeviceAllowlist{
				CIDRs: []string{"192.0.2.0/24"},
			}},
			raw:  "192.0.2.77",
			want: "192.0.2.77:22",
		},
		{
			name: "cidr allows usb bridge link-local",
			policy: DevicePolicy{Enabled: true, Allow: DeviceAllowlist{
				CIDRs: []string{"fe80::/10"},
			}},
			raw:  "[fe80::1]",
			want: "[fe80::1]:22",
		},
		// === Refused hosts ===
		{
			name:    "host not allowlisted",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "198.51.100.5",
			wantErr: true,
			errMatch: func(err error) bool {
				return errors.Is(err, ErrHostNotAllowed)
			},
		},
		{
			name:    "port not allowlisted",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "192.0.2.10:8022",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "port 8022 not allowed")
			},
		},
		{
			name:    "empty ports admit only the default",
			policy:  DevicePolicy{Enabled: true, Allow: DeviceAllowlist{Hosts: []string{"192.0.2.10"}}},
			raw:     "192.0.2.10:2222",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "port 2222 not allowed")
			},
		},
		{
			name:    "reject loopback",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "127.0.0.1",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "blocked ip")
			},
		},
		{
			name:    "reject IPv6 loopback",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "[::1]:22",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "blocked ip")
			},
		},
		{
			name:    "reject link-local without cidr",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "[fe80::1]",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "blocked ip")
			},
		},
		{
			name:    "reject scheme",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "ssh://192.0.2.10",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "scheme")
			},
		},
		{
			name:    "reject userinfo",
			policy:  DevicePolicy{Enabled: true, Allow: baseAllow},
			raw:     "mobile@192.0.2.10",
			wantErr: true,
			errMatch: func(err error) bool {
				return strings.Contains(err.Error(), "userinfo not allowed")
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ValidateDeviceHost(context.Background(), tc.raw, tc.policy)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				if tc.errMatch != nil && !tc.errMatch(err) {
					t.Fatalf("error %v did not match", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeHost(t *testing.T) {
	cases := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"Device-Host.Local", "device-host.local", false},
		{"münchen-lab.example", "xn--mnchen-lab-w5a.example", false},
		{"192.0.2.10.", "192.0.2.10", false},
		{"[2001:db8::1]", "2001:db8::1", false},
		{"host/path", "", true},
		{"user@host", "", true},
		{"host:22", "", true},
		{"fe80::1%en0", "", true},
		{"", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeHost(tc.raw)
		if (err != nil) != tc.wantErr {
			t.Errorf("NormalizeHost(%q) error = %v, wantErr %v", tc.raw, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("NormalizeHost(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
