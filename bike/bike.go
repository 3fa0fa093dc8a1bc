// Package bike holds the rental fleet: bike records, their model and color
// enumerations and the availability filter used to query them.
package bike

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrUnknownModel = errors.New("unknown bike model")
	ErrUnknownColor = errors.New("unknown bike color")
	ErrInvalidBike  = errors.New("invalid bike")
)

// Bike represents a bike of the rental fleet.
type Bike struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Model     Model     `db:"model"`
	Color     Color     `db:"color"`
	City      string    `db:"city"`
	State     string    `db:"state"`
	// Rentable marks bikes that show up when users browse for a rental.
	Rentable bool `db:"rentable"`
	// Rating is the rounded average of the bike's reviews, NULL until the first review.
	Rating sql.NullInt16 `db:"rating"`
}

// Validate checks the fields a manager supplies when creating or editing a bike.
func (b Bike) Validate() error {
	if !b.Model.Valid() {
		return ErrUnknownModel
	}
	if !b.Color.Valid() {
		return ErrUnknownColor
	}
	if b.City == "" || b.State == "" {
		return fmt.Errorf("%w: city and state are required", ErrInvalidBike)
	}
	return nil
}

type Model int

const (
	Giant Model = iota + 1
	Trek
	Diamondback
	Huffy
	Schwinn
	Mongoose
)

var modelNames = [...]string{"", "Giant", "Trek", "Diamondback", "Huffy", "Schwinn", "Mongoose"}

// Models lists every model in display order.
func Models() []Model {
	return []Model{Giant, Trek, Diamondback, Huffy, Schwinn, Mongoose}
}

func ParseModel(s string) (Model, error) {
	for i := 1; i < len(modelNames); i++ {
		if modelNames[i] == s {
			return Model(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
}

func (m Model) Valid() bool {
	return m > 0 && int(m) < len(modelNames)
}

func (m Model) String() string {
	if !m.Valid() {
		return ""
	}
	return modelNames[m]
}

func (m Model) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Model) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseModel(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

func (m Model) Value() (driver.Value, error) {
	if !m.Valid() {
		return nil, ErrUnknownModel
	}
	return m.String(), nil
}

func (m *Model) Scan(i any) error {
	s, err := scanString(i)
	if err != nil {
		return err
	}
	v, err := ParseModel(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

type Color int

const (
	Red Color = iota + 1
	Green
	Blue
	Orange
	Yellow
	Purple
	Black
)

var colorNames = [...]string{"", "Red", "Green", "Blue", "Orange", "Yellow", "Purple", "Black"}

// Colors lists every color in display order.
func Colors() []Color {
	return []Color{Red, Green, Blue, Orange, Yellow, Purple, Black}
}

func ParseColor(s string) (Color, error) {
	for i := 1; i < len(colorNames); i++ {
		if colorNames[i] == s {
			return Color(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColor, s)
}

func (c Color) Valid() bool {
	return c > 0 && int(c) < len(colorNames)
}

func (c Color) String() string {
	if !c.Valid() {
		return ""
	}
	return colorNames[c]
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) Value() (driver.Value, error) {
	if !c.Valid() {
		return nil, ErrUnknownColor
	}
	return c.String(), nil
}

func (c *Color) Scan(i any) error {
	s, err := scanString(i)
	if err != nil {
		return err
	}
	v, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func scanString(i any) (string, error) {
	switch v := i.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	}
	return "", fmt.Errorf("invalid scan type %T", i)
}
