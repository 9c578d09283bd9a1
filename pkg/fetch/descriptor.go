package fetch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Descriptor is one unit of fetch work.
type Descriptor struct {
	URL             string `json:"url" validate:"required,url"`
	CodComunidad    int    `json:"cod_comunidad" validate:"gte=0"`
	NombreComunidad string `json:"nombre_comunidad" validate:"required"`
	Anio            int    `json:"anio" validate:"gt=0"`
}

// Validate checks that the descriptor is usable.
func (d Descriptor) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	return nil
}

// Community is an REE geographic area.
type Community struct {
	Code int
	Name string
}

// communities lists the REE geo ids of the autonomous communities and cities.
var communities = []Community{
	{4, "Andalucía"},
	{5, "Aragón"},
	{6, "Cantabria"},
	{7, "Castilla-La Mancha"},
	{8, "Castilla y León"},
	{9, "Cataluña"},
	{10, "País Vasco"},
	{11, "Principado de Asturias"},
	{13, "Comunidad de Madrid"},
	{14, "Comunidad Foral de Navarra"},
	{15, "Comunitat Valenciana"},
	{16, "Extremadura"},
	{17, "Galicia"},
	{20, "La Rioja"},
	{21, "Región de Murcia"},
	{8742, "Canarias"},
	{8743, "Illes Balears"},
	{8744, "Ceuta"},
	{8745, "Melilla"},
}

// Communities returns a copy of the default community list.
func Communities() []Community {
	out := make([]Community, len(communities))
	copy(out, communities)
	return out
}

// CommunityByCode looks up a default community.
func CommunityByCode(code int) (Community, bool) {
	for _, c := range communities {
		if c.Code == code {
			return c, true
		}
	}
	return Community{}, false
}

// BuildDescriptors creates one descriptor per year and community against
// endpoint. Extra params override the defaults (time_trunc=month,
// geo_trunc=electric_system, geo_limit=ccaa).
func BuildDescriptors(endpoint string, comms []Community, years []int, params url.Values) ([]Descriptor, error) {
	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if !base.IsAbs() {
		return nil, fmt.Errorf("endpoint must be absolute: %q", endpoint)
	}

	descriptors := make([]Descriptor, 0, len(comms)*len(years))
	for _, year := range years {
		if year <= 0 {
			return nil, fmt.Errorf("%w: year %d", ErrInvalidDescriptor, year)
		}
		for _, c := range comms {
			q := base.Query()
			q.Set("start_date", fmt.Sprintf("%04d-01-01T00:00", year))
			q.Set("end_date", fmt.Sprintf("%04d-12-31T23:59", year))
			q.Set("time_trunc", "month")
			q.Set("geo_trunc", "electric_system")
			q.Set("geo_limit", "ccaa")
			q.Set("geo_ids", strconv.Itoa(c.Code))
			for k, v := range params {
				q[k] = append([]string(nil), v...)
			}

			u := *base
			u.RawQuery = q.Encode()
			descriptors = append(descriptors, Descriptor{
				URL:             u.String(),
				CodComunidad:    c.Code,
				NombreComunidad: c.Name,
				Anio:            year,
			})
		}
	}
	return descriptors, nil
}

// LoadDescriptors reads a JSON array of descriptors from path.
func LoadDescriptors(path string) ([]Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read descriptors: %w", err)
	}

	var descriptors []Descriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, fmt.Errorf("decode descriptors %s: %w", path, err)
	}

	for i, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, &DescriptorError{Index: i, URL: d.URL, Err: err}
		}
	}
	return descriptors, nil
}
