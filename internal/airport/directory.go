package airport

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

//go:embed data/iata-icao.csv
var embeddedCSV []byte

var validate = validator.New()

// Airport is one row of the airport table.
type Airport struct {
	CountryCode string  `json:"countryCode"`
	Region      string  `json:"region"`
	IATA        string  `json:"iata" validate:"omitempty,len=3,alphanum"`
	ICAO        string  `json:"icao" validate:"omitempty,len=4,alphanum"`
	Name        string  `json:"name" validate:"required"`
	Lat         float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon         float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Directory is a read-only airport table. It is safe for concurrent use
// once loaded.
type Directory struct {
	airports []Airport
	byCode   map[string]int
}

// LoadEmbedded loads the table bundled with the binary.
func LoadEmbedded() (*Directory, error) {
	return Load(bytes.NewReader(embeddedCSV))
}

// LoadFile loads a table from a CSV file on disk.
func LoadFile(path string) (*Directory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Load parses a CSV table with the header
// country_code,region_name,iata,icao,airport,latitude,longitude.
// Rows without a name or with invalid coordinates are skipped.
func Load(r io.Reader) (*Directory, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read airport header: %w", err)
	}
	idx := func(name string) int {
		for i, h := range headers {
			if strings.TrimSpace(h) == name {
				return i
			}
		}
		return -1
	}

	cols := map[string]int{
		"country_code": idx("country_code"),
		"region_name":  idx("region_name"),
		"iata":         idx("iata"),
		"icao":         idx("icao"),
		"airport":      idx("airport"),
		"latitude":     idx("latitude"),
		"longitude":    idx("longitude"),
	}
	for name, i := range cols {
		if i < 0 {
			return nil, fmt.Errorf("airport table is missing column %q", name)
		}
	}

	d := &Directory{byCode: make(map[string]int)}
	skipped := 0
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read airport line %d: %w", line, err)
		}

		field := func(col string) string {
			i := cols[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		lat, latErr := strconv.ParseFloat(field("latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field("longitude"), 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}

		a := Airport{
			CountryCode: field("country_code"),
			Region:      field("region_name"),
			IATA:        strings.ToUpper(field("iata")),
			ICAO:        strings.ToUpper(field("icao")),
			Name:        field("airport"),
			Lat:         lat,
			Lon:         lon,
		}
		if err := validate.Struct(a); err != nil {
			skipped++
			continue
		}

		d.add(a)
	}

	log.Printf("INFO: loaded %d airports (%d rows skipped)", len(d.airports), skipped)
	return d, nil
}

func (d *Directory) add(a Airport) {
	d.airports = append(d.airports, a)
	i := len(d.airports) - 1
	for _, code := range []string{a.ICAO, a.IATA} {
		if code == "" {
			continue
		}
		if _, exists := d.byCode[code]; !exists {
			d.byCode[code] = i
		}
	}
}

// Len returns the number of airports in the table.
func (d *Directory) Len() int {
	return len(d.airports)
}

// FindByPrefix returns the airports whose name starts with text, ignoring
// case, in table order. Blank text matches nothing. limit <= 0 is unlimited.
func (d *Directory) FindByPrefix(text string, limit int) []Airport {
	prefix := strings.ToLower(strings.TrimSpace(text))
	if prefix == "" {
		return nil
	}

	var out []Airport
	for _, a := range d.airports {
		if strings.HasPrefix(strings.ToLower(a.Name), prefix) {
			out = append(out, a)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Lookup finds an airport by ICAO or IATA code.
func (d *Directory) Lookup(code string) (Airport, bool) {
	i, ok := d.byCode[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return Airport{}, false
	}
	return d.airports[i], true
}
