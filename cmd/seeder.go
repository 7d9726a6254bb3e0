package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	officeDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/officelocation"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an admin, a few employees and a default office location for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := clearSeedData(gormDB); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		for _, u := range seedUsers {
			created, err := seedUser(gormDB, u.name, u.email, u.role, string(hash))
			if err != nil {
				log.Fatalf("failed to seed user %s: %v", u.email, err)
			}
			if created {
				fmt.Printf("Seeded %s user: %s\n", u.role, u.email)
			} else {
				fmt.Printf("%s already exists; skipping\n", u.email)
			}
		}

		office := officeDatamodel.OfficeLocation{
			Name:    "Head Office",
			Address: "Jl. M.H. Thamrin, Jakarta Pusat",
			Lat:     -6.200000,
			Lng:     106.816666,
			Radius:  100,
		}
		res := gormDB.Where(officeDatamodel.OfficeLocation{Name: office.Name}).FirstOrCreate(&office)
		if res.Error != nil {
			log.Fatalf("failed to seed office location: %v", res.Error)
		}
		if res.RowsAffected > 0 {
			fmt.Println("Seeded office location:", office.Name)
		}

		fmt.Println("Seeding completed. Default password:", seedPassword)
	},
}

const seedPassword = "password123"

var seedUsers = []struct {
	name  string
	email string
	role  userDatamodel.Role
}{
	{"Padil Admin", "admin@mail.com", userDatamodel.RoleAdmin},
	{"Fadhil", "fadhil@mail.com", userDatamodel.RoleEmployee},
	{"Rina Wijaya", "rina@mail.com", userDatamodel.RoleEmployee},
	{"Budi Santoso", "budi@mail.com", userDatamodel.RoleEmployee},
}

func seedUser(db *gorm.DB, name, email string, role userDatamodel.Role, hash string) (bool, error) {
	var existing userDatamodel.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	u := userDatamodel.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		return false, err
	}
	return true, nil
}

// clearSeedData removes rows child tables first so foreign keys hold.
func clearSeedData(db *gorm.DB) error {
	tables := []string{
		"notifications",
		"password_resets",
		"refresh_tokens",
		"presences",
		"office_locations",
		"users",
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			if err := tx.Exec(fmt.Sprintf("DELETE FROM %s", t)).Error; err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		return nil
	})
}
