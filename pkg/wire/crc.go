// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 X-Slot Contributors

package wire

import "github.com/sigurn/crc16"

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// CRC16 computes the CRC-16/CCITT checksum (poly 0x1021, init 0xFFFF, no
// reflect, no xor-out) used for every X-Slot frame. Reference vectors:
// CRC16(nil) == 0xFFFF, CRC16("123456789") == 0x29B1.
func CRC16(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
