package model

type Location struct {
	ID        int64    `json:"id" yaml:"-"`
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type" yaml:"type"`
	Address   string   `json:"address" yaml:"address"`
	City      string   `json:"city" yaml:"city"`
	ZipCode   string   `json:"zip_code" yaml:"zip_code"`
	Phone     string   `json:"phone" yaml:"phone"`
	Hours     string   `json:"hours" yaml:"hours"`
	Accepts   []string `json:"accepts" yaml:"accepts"`
	Latitude  float64  `json:"latitude" yaml:"latitude"`
	Longitude float64  `json:"longitude" yaml:"longitude"`
}
