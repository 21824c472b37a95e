package device

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

const (
	serialLength = 16
	macLength    = 12

	// instanceSuffixLength is how many trailing MAC characters form the
	// human-readable instance name.
	instanceSuffixLength = 4
)

const (
	serialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	hexAlphabet    = "0123456789ABCDEF"
)

// Metadata is the factory identity of a device. It is immutable after
// construction and forms the stable part of the wire document.
type Metadata struct {
	ID             string    `json:"id"`
	Codename       string    `json:"codename"`
	SerialNumber   string    `json:"serial_number"`
	ManufacturedAt time.Time `json:"manufactured_at"`
	MACAddress     string    `json:"mac_address"`
	InstanceName   string    `json:"instance_name"`
}

// NewMetadata mints a fresh identity for a device of the given codename.
//
// The MAC starts with the vendor prefix and is padded to 12 hex
// characters; the instance name is derived from the MAC's last four
// characters, mirroring how the physical units label themselves.
//
// Parameters:
//   - rng: Random source (shared, seeded once per daemon)
//   - codename: Product codename, e.g. "tiddymun"
//   - macPrefix: Vendor OUI prefix, may be empty
//
// Returns:
//   - Metadata: Fully populated identity
func NewMetadata(rng *rand.Rand, codename, macPrefix string) Metadata {
	mac := macPrefix + randomString(rng, hexAlphabet, macLength-len(macPrefix))

	return Metadata{
		ID:             uuid.NewString(),
		Codename:       codename,
		SerialNumber:   randomString(rng, serialAlphabet, serialLength),
		ManufacturedAt: time.Now().UTC(),
		MACAddress:     mac,
		InstanceName:   "Device-" + mac[len(mac)-instanceSuffixLength:],
	}
}

// randomString draws length characters from the alphabet.
func randomString(rng *rand.Rand, alphabet string, length int) string {
	if length <= 0 {
		return ""
	}

	out := make([]byte, length)
	for i := range out {
		out[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(out)
}
