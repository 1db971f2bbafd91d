package archive

// Packer transforms raw dump payloads into storage-ready archives:
// compression first, then encryption, then checksum sealing on store.
type Packer struct {
	compression CompressionConfig
	cipher      *Cipher
}

// NewPacker creates a packer from compression and encryption settings
func NewPacker(compression CompressionConfig, encryption EncryptionConfig) (*Packer, error) {
	if err := compression.Validate(); err != nil {
		return nil, err
	}
	if err := encryption.Validate(); err != nil {
		return nil, err
	}

	p := &Packer{compression: compression}

	if encryption.Enabled {
		cipher, err := NewCipher(encryption.Passphrase)
		if err != nil {
			return nil, err
		}
		p.cipher = cipher
	}

	return p, nil
}

// Pack wraps a raw dump payload into an archive, applying the configured
// compression and encryption
func (p *Packer) Pack(database, createdBy string, data []byte) (*Archive, *CompressionStats, error) {
	a := New(database, createdBy, data)

	compressed, stats, err := Compress(data, p.compression.Algorithm, p.compression.Level)
	if err != nil {
		return nil, nil, err
	}
	a.Data = compressed
	a.Metadata.Compression = stats.Algorithm

	if p.cipher != nil {
		encrypted, err := p.cipher.Seal(a.Data)
		if err != nil {
			return nil, nil, err
		}
		a.Data = encrypted
		a.Metadata.Encrypted = true
	}

	return a, stats, nil
}

// Unpack reverses Pack, returning the raw dump payload
func (p *Packer) Unpack(a *Archive) ([]byte, error) {
	if a == nil {
		return nil, NewValidationError("archive cannot be nil", nil)
	}

	data := a.Data

	if a.Metadata.Encrypted {
		if p.cipher == nil {
			return nil, NewEncryptionError("archive is encrypted but no passphrase is configured", nil)
		}
		decrypted, err := p.cipher.Open(data)
		if err != nil {
			return nil, err
		}
		data = decrypted
	}

	return Decompress(data, a.Metadata.Compression)
}
