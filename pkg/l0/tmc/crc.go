package tmc

// CRCPoly is the generator polynomial x^8 + x^2 + x + 1.
const CRCPoly byte = 0x07

// CRC computes the checksum of a datagram. The last byte is the checksum slot
// and is excluded, so CRC of an N-byte datagram covers its first N-1 bytes.
// Each byte is fed least significant bit first.
func CRC(datagram []byte) byte {
	if len(datagram) == 0 {
		return 0
	}
	return crcUpdate(0, datagram[:len(datagram)-1])
}

func crcUpdate(crc byte, data []byte) byte {
	for _, b := range data {
		for i := 0; i < 8; i++ {
			if (crc>>7)^(b&0x01) != 0 {
				crc = (crc << 1) ^ CRCPoly
			} else {
				crc <<= 1
			}
			b >>= 1
		}
	}
	return crc
}
