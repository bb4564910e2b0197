package daemon

import (
	"crypto/rand"
	"fmt"

	bolt "github.com/coreos/bbolt"
	macaroon "gopkg.in/macaroon.v2"
)

const (
	rootKeyBucketName = "macrootkeys"
	rootKeyID         = "0"
	rootKeyLen        = 32

	macaroonLocation = "lnlite"
)

// MacaroonService owns the bbolt-backed root key used to mint and verify
// the single admin macaroon that gates the control surface. It does not
// implement bakery-style caveat discharge; the control surface only ever
// needs a yes/no "was this macaroon minted by us" check.
type MacaroonService struct {
	db *bolt.DB
}

// NewMacaroonService opens (creating if necessary) the root key store at
// dbPath.
func NewMacaroonService(dbPath string) (*MacaroonService, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to open macaroon db: %v", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(rootKeyBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &MacaroonService{db: db}, nil
}

// Close releases the underlying database handle.
func (s *MacaroonService) Close() error {
	return s.db.Close()
}

// rootKey returns the persisted root key, generating and storing a fresh
// one the first time it is called.
func (s *MacaroonService) rootKey() ([]byte, error) {
	var key []byte

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(rootKeyBucketName))

		key = bucket.Get([]byte(rootKeyID))
		if key != nil {
			return nil
		}

		key = make([]byte, rootKeyLen)
		if _, err := rand.Read(key); err != nil {
			return err
		}
		return bucket.Put([]byte(rootKeyID), key)
	})
	if err != nil {
		return nil, err
	}

	return key, nil
}

// NewAdminMacaroon mints a fresh macaroon rooted at the service's root key,
// with no caveats: possession of the serialized macaroon is itself the
// admin credential.
func (s *MacaroonService) NewAdminMacaroon() (*macaroon.Macaroon, error) {
	key, err := s.rootKey()
	if err != nil {
		return nil, err
	}

	return macaroon.New(key, []byte(rootKeyID), macaroonLocation, macaroon.LatestVersion)
}

// Verify checks that macBytes deserializes to a macaroon rooted at the
// service's own root key, i.e. that it was minted by NewAdminMacaroon and
// not forged or copied from another instance.
func (s *MacaroonService) Verify(macBytes []byte) error {
	mac := &macaroon.Macaroon{}
	if err := mac.UnmarshalBinary(macBytes); err != nil {
		return fmt.Errorf("invalid macaroon: %v", err)
	}

	key, err := s.rootKey()
	if err != nil {
		return err
	}

	if err := mac.Verify(key, func(caveat string) error {
		return fmt.Errorf("unknown caveat: %s", caveat)
	}, nil); err != nil {
		return fmt.Errorf("macaroon verification failed: %v", err)
	}
	return nil
}

// writeAdminMacaroon mints an admin macaroon on every call and writes it to
// path only when no file exists there yet, matching the teacher's convention of handing lncli a file it can
// read off disk rather than printing credentials to the log.
func (s *MacaroonService) writeAdminMacaroon(path string) error {
	mac, err := s.NewAdminMacaroon()
	if err != nil {
		return err
	}

	macBytes, err := mac.MarshalBinary()
	if err != nil {
		return err
	}

	return writeFileIfAbsent(path, macBytes, 0600)
}
