package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	seedLocations = []string{"Hanoi", "Ho Chi Minh City", "Da Nang", "Hue", "Can Tho"}
	seedInterests = []string{"hiking", "cooking", "photography", "yoga", "gaming", "travel", "reading", "coffee", "music", "football"}
	seedTraits    = []string{"outgoing", "introverted", "adventurous", "calm", "ambitious", "creative"}
	seedLifestyle = []string{"active", "homebody", "night owl", "early bird"}
	seedJobs      = []string{"software engineer", "teacher", "designer", "nurse", "marketer", "chef"}
	seedEducation = []string{"high school", "bachelor", "master"}
)

// SeedTestData resets the database and populates it with demo profiles
// and decisions.
//
// Behavior:
//  1. Clears rankings, matches, likes, passes and profiles.
//  2. Creates 20 verified profiles (10 male, 10 female) with hashed
//     passwords and randomized matching attributes.
//  3. Generates ~200 decisions with ~70% likes; every 3rd decision
//     forces a mutual like and the corresponding match row.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	for _, table := range []string{"rankings", "matches", "likes", "passes", "profiles"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		db.Exec("ALTER TABLE profiles AUTO_INCREMENT = 1")
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence WHERE name = 'profiles'")
	}

	log.Println("Cleared existing data")

	// --- Seed Profiles (10 male, 10 female) ---
	for i := 1; i <= 20; i++ {
		hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		gender := "male"
		if i > 10 {
			gender = "female"
		}

		profile := Profile{
			Username:          fmt.Sprintf("user%d", i),
			Email:             fmt.Sprintf("user%d@example.com", i),
			PasswordHash:      string(hash),
			Name:              fmt.Sprintf("User %d", i),
			Gender:            gender,
			Age:               20 + r.Intn(20),
			Bio:               "Looking for someone to share good food and bad jokes with.",
			JobTitle:          seedJobs[r.Intn(len(seedJobs))],
			Education:         seedEducation[r.Intn(len(seedEducation))],
			Location:          seedLocations[r.Intn(len(seedLocations))],
			Interests:         pickN(r, seedInterests, 3+r.Intn(3)),
			PersonalityTraits: pickN(r, seedTraits, 2),
			Lifestyle:         seedLifestyle[r.Intn(len(seedLifestyle))],
			HeightCM:          155 + r.Intn(35),
			WeightKG:          45 + r.Intn(40),
			Verified:          true,
			Active:            true,
			LastActiveAt:      time.Now().Add(-time.Duration(r.Intn(500)) * time.Hour),
		}

		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// --- Seed Decisions (~200) ---
	counter := 0
	for senderID := uint64(1); senderID <= 20; senderID++ {
		for j := 0; j < 12; j++ { // each user decides on ~12 others
			receiverID := uint64(r.Intn(20) + 1)
			if senderID == receiverID {
				continue
			}

			var sender, receiver Profile
			if err := db.First(&sender, senderID).Error; err != nil {
				continue
			}
			if err := db.First(&receiver, receiverID).Error; err != nil {
				continue
			}
			if sender.Gender == receiver.Gender {
				continue
			}

			// like probability 70%
			liked := r.Intn(100) < 70

			// guarantee mutual likes every 3rd pair
			if counter%3 == 0 {
				liked = true
				recip := Like{SenderID: receiverID, ReceiverID: senderID}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&recip)

				a, b := senderID, receiverID
				if a > b {
					a, b = b, a
				}
				match := Match{ID: uuid.NewString(), UserAID: a, UserBID: b}
				db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match)
			}

			if liked {
				like := Like{SenderID: senderID, ReceiverID: receiverID}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
					return fmt.Errorf("failed to seed like: %w", err)
				}
			} else {
				pass := Pass{SenderID: senderID, ReceiverID: receiverID}
				if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&pass).Error; err != nil {
					return fmt.Errorf("failed to seed pass: %w", err)
				}
			}

			counter++
		}
	}

	return nil
}

func pickN(r *rand.Rand, pool []string, n int) []string {
	idx := r.Perm(len(pool))
	if n > len(pool) {
		n = len(pool)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}
