// Package loader turns external product sources into document.Product
// values: JSON files (an array of products or one product per line) and a
// Kafka topic carrying one JSON product per message.
package loader

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/nested-search/internal/document"
)

// LoadProducts decodes products from r. The input is either a JSON array or
// a stream of JSON objects. Product order is preserved.
func LoadProducts(r io.Reader) ([]document.Product, error) {
	br := bufio.NewReader(r)
	first, err := firstNonSpace(br)
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading products: %w", err)
	}

	dec := json.NewDecoder(br)
	var products []document.Product
	if first == '[' {
		if err := dec.Decode(&products); err != nil {
			return nil, fmt.Errorf("decoding product array: %w", err)
		}
	} else {
		for {
			var p document.Product
			err := dec.Decode(&p)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decoding product %d: %w", len(products), err)
			}
			products = append(products, p)
		}
	}
	for i, p := range products {
		if err := Check(p); err != nil {
			return nil, fmt.Errorf("product %d: %w", i, err)
		}
	}
	return products, nil
}

// LoadFile loads products from a JSON file.
func LoadFile(path string) ([]document.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening product file: %w", err)
	}
	defer f.Close()
	products, err := LoadProducts(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	slog.Default().With("component", "loader").Info("products loaded",
		"path", path,
		"count", len(products),
	)
	return products, nil
}

// Check rejects products that cannot be identified once indexed.
func Check(p document.Product) error {
	if p.ID == "" {
		return errors.New("missing id")
	}
	for i, s := range p.SKUs {
		if s.SKUID == "" {
			return fmt.Errorf("sku %d of %s: missing skuId", i, p.ID)
		}
	}
	return nil
}

func firstNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
