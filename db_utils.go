package main

import (
	"errors"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

func KeyExists(key string) (bool, error) {
	exists := false
	err := db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		exists = true
		return nil
	})
	return exists, err
}

func GetKeyValue(key string) (string, error) {
	value := ""
	err := db.View(func(txn *badger.Txn) error {
		val, err := GetKeyValueTX(txn, key)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	return value, err
}

// GetKeyValueTX returns the value of key, or "" when the key is absent.
func GetKeyValueTX(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func GetIntKey(key string) (int, error) {
	value := 0
	err := db.View(func(txn *badger.Txn) error {
		val, err := GetIntKeyTX(txn, key)
		if err != nil {
			return err
		}
		value = val
		return nil
	})
	return value, err
}

func MustGetIntKey(key string) int {
	val, _ := GetIntKey(key)
	return val
}

func GetIntKeyTX(txn *badger.Txn, key string) (int, error) {
	raw, err := GetKeyValueTX(txn, key)
	if err != nil || raw == "" {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func MustGetIntKeyTX(txn *badger.Txn, key string) int {
	val, _ := GetIntKeyTX(txn, key)
	return val
}

func IncrementKeyTX(txn *badger.Txn, key string, val int) error {
	if val == 0 {
		val = 1
	}
	current, err := GetIntKeyTX(txn, key)
	if err != nil {
		return err
	}
	return txn.Set([]byte(key), []byte(strconv.Itoa(current+val)))
}

func SetIfNotExistsTX(txn *badger.Txn, key, value string) error {
	_, err := txn.Get([]byte(key))
	if err == nil {
		return nil
	}
	return txn.Set([]byte(key), []byte(value))
}
