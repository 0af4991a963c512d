// Package sandbox generates reproducible demo data for a practice (doctors
// and front-office staff, the service catalog, patients and a day of
// appointments) and writes it through the persistence collaborator.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume of generated data.
type SeedConfig struct {
	DoctorCount           int `json:"doctorCount"`
	PatientCount          int `json:"patientCount"`
	AppointmentsPerDoctor int `json:"appointmentsPerDoctor"`

	// AppointmentDate is the day appointments are booked on, YYYY-MM-DD.
	// Empty books nothing.
	AppointmentDate string `json:"appointmentDate,omitempty"`
	// IncludeServices creates the service catalog too, for practices whose
	// catalog was not loaded by migration.
	IncludeServices bool   `json:"includeServices"`
	Seed            int64  `json:"seed"`
}

// DefaultSeedConfig returns a small practice.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		DoctorCount:           3,
		PatientCount:          25,
		AppointmentsPerDoctor: 4,
		Seed:                  1,
	}
}

// SeedResult counts the records created per resource.
type SeedResult struct {
	Staff        int           `json:"staff"`
	Services     int           `json:"services"`
	Patients     int           `json:"patients"`
	Appointments int           `json:"appointments"`
	Duration     time.Duration `json:"duration"`
}

// Creator stores one record of a resource and returns it with its id.
type Creator interface {
	Create(ctx context.Context, resource string, body map[string]any) (map[string]any, error)
}

// ---------------------------------------------------------------------------
// Reference data
// ---------------------------------------------------------------------------

type service struct {
	code     string
	name     string
	price    float64
	duration int
}

var (
	firstNames = []string{
		"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
		"Linda", "David", "Elizabeth", "William", "Susan", "Richard", "Jessica",
		"Joseph", "Sarah", "Thomas", "Karen", "Daniel", "Nancy", "Amina",
		"Kenji", "Priya", "Mateo", "Ingrid",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Wilson",
		"Anderson", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Nguyen",
	}
	specialties = []string{"General Practice", "Pediatrics", "Dermatology", "Cardiology", "Family Medicine"}
	streets     = []string{"123 Main St", "456 Oak Ave", "789 Elm St", "321 Pine Rd", "654 Maple Dr"}
	cities      = []string{"Springfield", "Riverside", "Fairview", "Franklin", "Greenville"}
	bloodTypes  = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
	genders     = []string{"male", "female", "other"}
	allergens   = []string{"Penicillin", "Peanuts", "Latex", "Pollen", "Shellfish"}
	severities  = []string{"mild", "moderate", "severe"}

	services = []service{
		{"consultation", "Consultation", 75, 30},
		{"follow-up", "Follow-up", 45, 15},
		{"checkup", "Annual checkup", 60, 30},
		{"vaccination", "Vaccination", 30, 15},
		{"procedure", "Minor procedure", 150, 60},
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces record bodies. The same seed yields the same data.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{rng: rand.New(rand.NewSource(seed))}
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

func (g *DataGenerator) randomDate(minYear, maxYear int) string {
	y := minYear + g.rng.Intn(maxYear-minYear+1)
	m := 1 + g.rng.Intn(12)
	d := 1 + g.rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", y, m, d)
}

func (g *DataGenerator) randomPhone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", 200+g.rng.Intn(800), 200+g.rng.Intn(800), g.rng.Intn(10000))
}

func email(first, last string) string {
	return strings.ToLower(first + "." + last + "@example.com")
}

// GenerateStaff produces a staff member with the given role.
func (g *DataGenerator) GenerateStaff(role string) map[string]any {
	first, last := g.pick(firstNames), g.pick(lastNames)
	rec := map[string]any{
		"firstName":  first,
		"lastName":   last,
		"role":       role,
		"email":      email(first, last),
		"phone":      g.randomPhone(),
		"baseSalary": float64(3000 + 250*g.rng.Intn(20)),
	}
	if role == "doctor" {
		rec["specialty"] = g.pick(specialties)
		rec["baseSalary"] = float64(8000 + 500*g.rng.Intn(10))
	}
	return rec
}

// GeneratePatient produces a consenting patient, some with an allergy.
func (g *DataGenerator) GeneratePatient() map[string]any {
	first, last := g.pick(firstNames), g.pick(lastNames)
	allergies := []any{}
	if g.rng.Intn(3) == 0 {
		allergies = append(allergies, map[string]any{
			"substance": g.pick(allergens),
			"severity":  g.pick(severities),
		})
	}
	return map[string]any{
		"firstName":   first,
		"lastName":    last,
		"dateOfBirth": g.randomDate(1945, 2018),
		"gender":      g.pick(genders),
		"email":       email(first, last),
		"phone":       g.randomPhone(),
		"address": map[string]any{
			"street":     g.pick(streets),
			"city":       g.pick(cities),
			"state":      "CA",
			"postalCode": fmt.Sprintf("9%04d", g.rng.Intn(10000)),
			"country":    "US",
		},
		"bloodType":   g.pick(bloodTypes),
		"allergies":   allergies,
		"medications": []any{},
		"consent":     true,
	}
}

// serviceRecord produces a catalog item.
func serviceRecord(s service) map[string]any {
	return map[string]any{"code": s.code, "name": s.name, "price": s.price, "durationMinutes": s.duration}
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder writes a generated practice through a Creator.
type Seeder struct {
	creator Creator
	config  SeedConfig
	logger  zerolog.Logger
}

// NewSeeder creates a Seeder. Zero counts fall back to DefaultSeedConfig.
func NewSeeder(creator Creator, config SeedConfig, logger zerolog.Logger) *Seeder {
	def := DefaultSeedConfig()
	if config.DoctorCount <= 0 {
		config.DoctorCount = def.DoctorCount
	}
	if config.PatientCount <= 0 {
		config.PatientCount = def.PatientCount
	}
	if config.AppointmentsPerDoctor < 0 {
		config.AppointmentsPerDoctor = 0
	}
	return &Seeder{creator: creator, config: config, logger: logger}
}

// Seed creates the catalog when asked, the staff (doctors, a receptionist and an
// accountant), the patients and, when a date is configured, back-to-back
// appointments for each doctor. It stops at the first rejected record.
func (s *Seeder) Seed(ctx context.Context) (*SeedResult, error) {
	start := time.Now()
	if d := s.config.AppointmentDate; d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return nil, fmt.Errorf("appointment date %q: %w", d, err)
		}
	}
	g := NewDataGenerator(s.config.Seed)
	res := &SeedResult{}

	for _, svc := range services {
		if !s.config.IncludeServices {
			break
		}
		if _, err := s.create(ctx, "services", serviceRecord(svc)); err != nil {
			return res, err
		}
		res.Services++
	}

	var doctors []string
	roles := []string{"receptionist", "accountant"}
	for i := 0; i < s.config.DoctorCount; i++ {
		roles = append(roles, "doctor")
	}
	for _, role := range roles {
		rec, err := s.create(ctx, "staff", g.GenerateStaff(role))
		if err != nil {
			return res, err
		}
		res.Staff++
		if role == "doctor" {
			doctors = append(doctors, idOf(rec))
		}
	}

	patients := make([]string, 0, s.config.PatientCount)
	for i := 0; i < s.config.PatientCount; i++ {
		rec, err := s.create(ctx, "patients", g.GeneratePatient())
		if err != nil {
			return res, err
		}
		res.Patients++
		patients = append(patients, idOf(rec))
	}

	if s.config.AppointmentDate != "" && len(patients) > 0 {
		for _, doctor := range doctors {
			minute := 9 * 60
			for i := 0; i < s.config.AppointmentsPerDoctor; i++ {
				svc := services[g.rng.Intn(len(services))]
				_, err := s.create(ctx, "appointments", map[string]any{
					"patientId":   patients[g.rng.Intn(len(patients))],
					"doctorId":    doctor,
					"serviceType": svc.code,
					"date":        s.config.AppointmentDate,
					"time":        fmt.Sprintf("%02d:%02d", minute/60, minute%60),
					"duration":    svc.duration,
					"fee":         svc.price,
				})
				if err != nil {
					return res, err
				}
				res.Appointments++
				minute += svc.duration
			}
		}
	}

	res.Duration = time.Since(start)
	s.logger.Info().
		Int("staff", res.Staff).
		Int("services", res.Services).
		Int("patients", res.Patients).
		Int("appointments", res.Appointments).
		Dur("duration", res.Duration).
		Msg("demo data seeded")
	return res, nil
}

func (s *Seeder) create(ctx context.Context, resource string, body map[string]any) (map[string]any, error) {
	rec, err := s.creator.Create(ctx, resource, body)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", resource, err)
	}
	return rec, nil
}

func idOf(rec map[string]any) string {
	if rec == nil {
		return ""
	}
	return fmt.Sprint(rec["id"])
}
