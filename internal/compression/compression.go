package compression

// Compression holds one compressor per category of serialized string.  It
// is immutable once built and safe for concurrent use.
type Compression struct {
	NetworkRedirect  *Smaz
	NetworkHostname  *Smaz
	NetworkCSP       *Smaz
	NetworkFilter    *Smaz
	NetworkRaw       *Smaz
	CosmeticSelector *Smaz
	CosmeticRaw      *Smaz
}

// New returns a Compression built from the bundled codebooks.
func New() (c *Compression) {
	return &Compression{
		NetworkRedirect:  NewSmaz(networkRedirectCodebook),
		NetworkHostname:  NewSmaz(networkHostnameCodebook),
		NetworkCSP:       NewSmaz(networkCSPCodebook),
		NetworkFilter:    NewSmaz(networkFilterCodebook),
		NetworkRaw:       NewSmaz(rawNetworkCodebook),
		CosmeticSelector: NewSmaz(cosmeticSelectorCodebook),
		CosmeticRaw:      NewSmaz(rawCosmeticCodebook),
	}
}
