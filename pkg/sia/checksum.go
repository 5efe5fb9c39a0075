// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sia

// CalculateChecksum computes the column parity of data: an XOR-fold of every
// byte, seeded with 0xFF.
func CalculateChecksum(data []byte) byte {
	sum := byte(checksumSeed)
	for _, b := range data {
		sum ^= b
	}
	return sum
}
