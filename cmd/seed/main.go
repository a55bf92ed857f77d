package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbridge/hospital-api/internal/auth"
	"github.com/medbridge/hospital-api/internal/db"
)

// Every seeded account gets the same password so local testing is painless.
const seedPassword = "password123"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	passwordHash, err := auth.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	root := context.Background()

	specialtyIDs, err := seedSpecialties(root, pool)
	if err != nil {
		log.Fatalf("seed specialties: %v", err)
	}
	if err := seedDoctors(root, pool, passwordHash, specialtyIDs, 25); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(root, pool, passwordHash, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedProducts(root, pool, 80); err != nil {
		log.Fatalf("seed products: %v", err)
	}

	log.Println("seed complete")
}

func seedSpecialties(ctx context.Context, pool *pgxpool.Pool) ([]int64, error) {
	names := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	log.Printf("seeding %d specialties", len(names))

	ids := make([]int64, 0, len(names))
	for i, name := range names {
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO gnuhealth_specialty (name, code, create_date)
			VALUES ($1, $2, now())
			RETURNING id
		`, name, fmt.Sprintf("SP%02d", i+1)).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, passwordHash string, specialtyIDs []int64, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		name := "Dr. " + gofakeit.Name()
		login := fmt.Sprintf("doctor%03d", i+1)

		var userID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO res_user (name, login, password_hash, otp_verified, create_date)
			VALUES ($1, $2, $3, 'true', now())
			RETURNING id
		`, name, login, passwordHash).Scan(&userID)
		if err != nil {
			return fmt.Errorf("insert res_user: %w", err)
		}

		var partyID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO party_party (name, is_healthprof, is_patient, internal_user, create_date)
			VALUES ($1, true, false, $2, now())
			RETURNING id
		`, name, userID).Scan(&partyID)
		if err != nil {
			return fmt.Errorf("insert party_party: %w", err)
		}

		specialty := specialtyIDs[gofakeit.Number(0, len(specialtyIDs)-1)]
		_, err = tx.Exec(ctx, `
			INSERT INTO gnuhealth_healthprofessional (name, main_specialty, create_date)
			VALUES ($1, $2, now())
		`, partyID, specialty)
		if err != nil {
			return fmt.Errorf("insert healthprofessional: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, passwordHash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			name := gofakeit.Name()
			login := fmt.Sprintf("patient%04d", i+1)

			var userID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO res_user (name, login, password_hash, otp_verified, create_date)
				VALUES ($1, $2, $3, 'true', now())
				RETURNING id
			`, name, login, passwordHash).Scan(&userID)
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("insert res_user: %w", err)
			}

			var partyID int64
			err = tx.QueryRow(ctx, `
				INSERT INTO party_party (name, is_healthprof, is_patient, internal_user, create_date)
				VALUES ($1, false, true, $2, now())
				RETURNING id
			`, name, userID).Scan(&partyID)
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("insert party_party: %w", err)
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO gnuhealth_patient (name, create_date)
				VALUES ($1, now())
			`, partyID)
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("insert patient: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		log.Printf("patients seeded: %d/%d", end, count)
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d products", count)

	forms := []string{"Tablet", "Capsule", "Syrup", "Injection", "Cream", "Drops"}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		word := gofakeit.Word()
		name := fmt.Sprintf("%s %s %dmg",
			strings.ToUpper(word[:1])+word[1:],
			forms[gofakeit.Number(0, len(forms)-1)],
			gofakeit.Number(1, 100)*5)
		price := float64(gofakeit.Number(20, 2000)) / 4

		var templateID int64
		err := tx.QueryRow(ctx, `
			INSERT INTO product_template (name, create_date)
			VALUES ($1, now())
			RETURNING id
		`, name).Scan(&templateID)
		if err != nil {
			return fmt.Errorf("insert template: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO product_list_price (template, list_price, create_date)
			VALUES ($1, $2, now())
		`, templateID, price)
		if err != nil {
			return fmt.Errorf("insert list price: %w", err)
		}

		var productID int64
		err = tx.QueryRow(ctx, `
			INSERT INTO product_product (template, create_date)
			VALUES ($1, now())
			RETURNING id
		`, templateID).Scan(&productID)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO stock_lot (product, number, create_date)
			VALUES ($1, $2, now())
		`, productID, float64(gofakeit.Number(0, 500)))
		if err != nil {
			return fmt.Errorf("insert stock lot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	log.Println("products seeded")
	return nil
}
