package redis

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/forceu/uploadrelay/internal/models"
	redigo "github.com/gomodule/redigo/redis"
)

const prefixCancel = "cancel:"
const prefixOutcome = "outcome:"
const fieldStatus = "status"
const fieldCreated = "created"

// SignalProvider stores markers as keys on a redis server
type SignalProvider struct {
	pool     *redigo.Pool
	dbPrefix string
}

// New returns an instance and verifies that the server is reachable
func New(config models.SignalConnection) (SignalProvider, error) {
	if config.Host == "" {
		return SignalProvider{}, errors.New("empty redis host was provided")
	}
	options := getDialOptions(config)
	pool := &redigo.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redigo.Conn, error) {
			return redigo.Dial("tcp", config.Host, options...)
		},
	}
	conn := pool.Get()
	defer conn.Close()
	_, err := conn.Do("PING")
	if err != nil {
		_ = pool.Close()
		return SignalProvider{}, err
	}
	return SignalProvider{pool: pool, dbPrefix: config.Prefix}, nil
}

func getDialOptions(config models.SignalConnection) []redigo.DialOption {
	dialOptions := []redigo.DialOption{redigo.DialConnectTimeout(10 * time.Second)}
	if config.Username != "" {
		dialOptions = append(dialOptions, redigo.DialUsername(config.Username))
	}
	if config.Password != "" {
		dialOptions = append(dialOptions, redigo.DialPassword(config.Password))
	}
	if config.UseSsl {
		dialOptions = append(dialOptions, redigo.DialUseTLS(true))
	}
	return dialOptions
}

// GetType returns 1, for being a redis provider
func (p SignalProvider) GetType() int {
	return 1 // signalstore.TypeRedis
}

// RequestCancel creates the cancellation marker with SET NX, so that concurrent requests create only one marker
func (p SignalProvider) RequestCancel(sessionId string) (bool, error) {
	conn := p.pool.Get()
	defer conn.Close()
	_, err := redigo.String(conn.Do("SET", p.dbPrefix+prefixCancel+sessionId, time.Now().Unix(), "NX"))
	if errors.Is(err, redigo.ErrNil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsCancelled returns true if a cancellation marker exists
func (p SignalProvider) IsCancelled(sessionId string) (bool, error) {
	conn := p.pool.Get()
	defer conn.Close()
	return redigo.Bool(conn.Do("EXISTS", p.dbPrefix+prefixCancel+sessionId))
}

// SaveOutcome stores the terminal status reported by the worker
func (p SignalProvider) SaveOutcome(sessionId string, status models.SessionStatus) error {
	conn := p.pool.Get()
	defer conn.Close()
	_, err := conn.Do("HSET", p.dbPrefix+prefixOutcome+sessionId,
		fieldStatus, string(status),
		fieldCreated, time.Now().Unix())
	return err
}

// GetOutcome returns the terminal status reported by the worker or false if none was saved yet
func (p SignalProvider) GetOutcome(sessionId string) (models.SessionStatus, bool, error) {
	conn := p.pool.Get()
	defer conn.Close()
	result, err := redigo.String(conn.Do("HGET", p.dbPrefix+prefixOutcome+sessionId, fieldStatus))
	if errors.Is(err, redigo.ErrNil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return models.SessionStatus(result), true, nil
}

// Purge deletes all markers of a session
func (p SignalProvider) Purge(sessionId string) error {
	conn := p.pool.Get()
	defer conn.Close()
	_, err := conn.Do("DEL", p.dbPrefix+prefixCancel+sessionId, p.dbPrefix+prefixOutcome+sessionId)
	return err
}

// PurgeOlderThan deletes all markers created before now - age
func (p SignalProvider) PurgeOlderThan(age time.Duration) error {
	conn := p.pool.Get()
	defer conn.Close()
	cutoff := time.Now().Add(-age).Unix()

	cancelKeys, err := scanKeys(conn, p.dbPrefix+prefixCancel)
	if err != nil {
		return err
	}
	for _, key := range cancelKeys {
		created, err := redigo.Int64(conn.Do("GET", key))
		if err != nil && !errors.Is(err, redigo.ErrNil) {
			return err
		}
		if created < cutoff {
			if _, err = conn.Do("DEL", key); err != nil {
				return err
			}
		}
	}

	outcomeKeys, err := scanKeys(conn, p.dbPrefix+prefixOutcome)
	if err != nil {
		return err
	}
	for _, key := range outcomeKeys {
		createdString, err := redigo.String(conn.Do("HGET", key, fieldCreated))
		if err != nil && !errors.Is(err, redigo.ErrNil) {
			return err
		}
		created, _ := strconv.ParseInt(createdString, 10, 64)
		if created < cutoff {
			if _, err = conn.Do("DEL", key); err != nil {
				return err
			}
		}
	}
	return nil
}

func scanKeys(conn redigo.Conn, prefix string) ([]string, error) {
	var result []string
	cursor := 0
	for {
		values, err := redigo.Values(conn.Do("SCAN", cursor, "MATCH", prefix+"*", "COUNT", 100))
		if err != nil {
			return nil, err
		}
		cursor, _ = redigo.Int(values[0], nil)
		keys, _ := redigo.Strings(values[1], nil)
		result = append(result, keys...)
		if cursor == 0 {
			break
		}
	}
	return result, nil
}

// Close the connection pool
func (p SignalProvider) Close() {
	if p.pool == nil {
		return
	}
	err := p.pool.Close()
	if err != nil {
		fmt.Println(err)
	}
}
