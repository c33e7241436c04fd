package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/mcp-resources/server"
)

var loremWords = strings.Fields(`lorem ipsum dolor sit amet consectetur
adipiscing elit sed do eiusmod tempor incididunt ut labore et dolore magna
aliqua enim ad minim veniam quis nostrud exercitation ullamco laboris nisi
aliquip ex ea commodo consequat duis aute irure in reprehenderit voluptate
velit esse cillum eu fugiat nulla pariatur excepteur sint occaecat cupidatat
non proident sunt culpa qui officia deserunt mollit anim id est laborum`)

// Lorem generates placeholder paragraphs.
type Lorem struct {
	rng Source
}

// NewLorem creates the generated://lorem provider.
func NewLorem(rng Source) *Lorem {
	return &Lorem{rng: rng}
}

// Describe returns the metadata of the lorem text resource.
func (l *Lorem) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URILorem,
		Name:        "Lorem Ipsum",
		Description: "Randomly generated placeholder text",
		MimeType:    MimeText,
	}
}

// Produce returns freshly generated paragraphs.
func (l *Lorem) Produce(context.Context) (string, string, error) {
	n := 3 + l.rng.Intn(3)
	paragraphs := make([]string, n)
	for i := range paragraphs {
		paragraphs[i] = l.paragraph()
	}
	return strings.Join(paragraphs, "\n\n"), MimeText, nil
}

func (l *Lorem) paragraph() string {
	sentences := make([]string, 4+l.rng.Intn(4))
	for i := range sentences {
		words := make([]string, 6+l.rng.Intn(10))
		for j := range words {
			words[j] = loremWords[l.rng.Intn(len(loremWords))]
		}
		words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
		sentences[i] = strings.Join(words, " ") + "."
	}
	return strings.Join(sentences, " ")
}

var (
	firstNames = []string{"Ada", "Alan", "Barbara", "Dennis", "Edsger", "Frances", "Grace", "John", "Ken", "Leslie", "Margaret", "Niklaus", "Radia", "Rob", "Tony"}
	lastNames  = []string{"Allen", "Dijkstra", "Hamilton", "Hoare", "Hopper", "Kernighan", "Knuth", "Lamport", "Liskov", "Lovelace", "Perlman", "Pike", "Ritchie", "Thompson", "Wirth"}
)

// User is one generated record.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Age    int    `json:"age"`
	Active bool   `json:"active"`
}

// DataMeta summarizes a generated data set.
type DataMeta struct {
	Total       int    `json:"total"`
	GeneratedAt string `json:"generatedAt"`
}

// Dataset is the content of generated://data.
type Dataset struct {
	Users []User   `json:"users"`
	Meta  DataMeta `json:"meta"`
}

// Data generates a random set of user records.
type Data struct {
	rng Source
	now func() time.Time
}

// NewData creates the generated://data provider.
func NewData(rng Source, now func() time.Time) *Data {
	if now == nil {
		now = time.Now
	}
	return &Data{rng: rng, now: now}
}

// Describe returns the metadata of the generated users resource.
func (d *Data) Describe() server.ResourceInfo {
	return server.ResourceInfo{
		URI:         URIData,
		Name:        "Sample Data",
		Description: "Randomly generated user records",
		MimeType:    MimeJSON,
	}
}

// Produce returns a freshly generated user list as JSON.
func (d *Data) Produce(context.Context) (string, string, error) {
	set, err := d.Generate()
	if err != nil {
		return "", "", err
	}
	text, err := marshal(set)
	return text, MimeJSON, err
}

// Generate builds 5 to 15 users aged 18 to 67.
func (d *Data) Generate() (Dataset, error) {
	users := make([]User, 5+d.rng.Intn(11))
	for i := range users {
		id, err := uuid.NewRandomFromReader(d.rng)
		if err != nil {
			return Dataset{}, fmt.Errorf("generating id: %w", err)
		}
		first := firstNames[d.rng.Intn(len(firstNames))]
		last := lastNames[d.rng.Intn(len(lastNames))]
		users[i] = User{
			ID:     id.String(),
			Name:   first + " " + last,
			Email:  strings.ToLower(first+"."+last) + "@example.com",
			Age:    18 + d.rng.Intn(50),
			Active: d.rng.Intn(2) == 0,
		}
	}
	return Dataset{
		Users: users,
		Meta: DataMeta{
			Total:       len(users),
			GeneratedAt: d.now().UTC().Format(time.RFC3339),
		},
	}, nil
}
