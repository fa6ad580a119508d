package s0_data

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/lalith1997/quantscreen/internal/contracts"
)

// Snapshot is the JSON interchange form of a MemoryProvider
type Snapshot struct {
	Companies    []Listing                     `json:"companies"`
	Fundamentals []contracts.FundamentalRecord `json:"fundamentals"`
	Prices       []contracts.PriceBar          `json:"prices"`
}

// LoadSnapshot reads a JSON snapshot file into a MemoryProvider
func LoadSnapshot(path string) (*MemoryProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	p, err := ReadSnapshot(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ReadSnapshot decodes a snapshot and validates every fundamental history
func ReadSnapshot(r io.Reader) (*MemoryProvider, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap.Provider()
}

// Provider builds a MemoryProvider from the snapshot
func (s *Snapshot) Provider() (*MemoryProvider, error) {
	p := NewMemoryProvider()
	for _, l := range s.Companies {
		if err := p.AddCompany(l); err != nil {
			return nil, err
		}
	}
	if err := p.AddFundamentals(s.Fundamentals...); err != nil {
		return nil, fmt.Errorf("fundamentals: %w", err)
	}
	if err := p.AddPrices(s.Prices...); err != nil {
		return nil, fmt.Errorf("prices: %w", err)
	}
	return p, nil
}

// Snapshot exports the provider contents, ordered by company.
// Price series without a listing (benchmarks) are kept.
func (p *MemoryProvider) Snapshot() *Snapshot {
	snap := &Snapshot{Companies: p.Companies()}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, l := range snap.Companies {
		snap.Fundamentals = append(snap.Fundamentals, p.fundamentals[l.ID]...)
	}

	series := make([]string, 0, len(p.prices))
	for id := range p.prices {
		series = append(series, id)
	}
	sort.Strings(series)
	for _, id := range series {
		snap.Prices = append(snap.Prices, p.prices[id]...)
	}
	return snap
}

// WriteSnapshot encodes a snapshot as indented JSON
func WriteSnapshot(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
