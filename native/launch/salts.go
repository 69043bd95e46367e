package launch

import (
	"encoding/binary"

	gethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/vcazador/dejungl-meme/core/events"
)

// VanityMarker is the fixed value the trailing 16 bits of every token
// address must match. It brands deployed tokens; it has no security role.
const VanityMarker uint16 = 0xDEF1

// deriveAddress recomputes the deterministic deployment address for a salt
// from the factory address and the fixed init-code hash, CREATE2 style.
func (e *Engine) deriveAddress(salt [32]byte) [20]byte {
	addr := ethcrypto.CreateAddress2(gethcommon.Address(e.factoryAddr), salt, e.initCodeHash[:])
	return [20]byte(addr)
}

// ValidateSalt reports whether the salt maps to an address whose trailing 16
// bits match the vanity marker and where no contract currently exists. It is
// a pure function of (factory address, salt, init code hash) plus the
// occupancy check.
func (e *Engine) ValidateSalt(salt [32]byte) (bool, error) {
	if e == nil || e.state == nil {
		return false, errNilState
	}
	addr := e.deriveAddress(salt)
	if binary.BigEndian.Uint16(addr[18:]) != VanityMarker {
		return false, nil
	}
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return false, err
	}
	if acc.HasCode() {
		return false, nil
	}
	return true, nil
}

// AddSalts appends pre-validated salts to the consumption queue. Operator
// only. In strict mode a single invalid candidate aborts the whole batch; in
// lenient mode invalid candidates are skipped. Returns the number accepted.
func (e *Engine) AddSalts(caller [20]byte, salts [][32]byte, strict bool) (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	if caller != e.operator || isZeroAddress(e.operator) {
		return 0, ErrUnauthorizedCaller
	}
	queue, err := e.state.SaltQueueGet()
	if err != nil {
		return 0, err
	}
	queued := make(map[[32]byte]bool, len(queue))
	for _, s := range queue {
		queued[s] = true
	}
	accepted := 0
	rejected := 0
	for _, salt := range salts {
		ok, err := e.ValidateSalt(salt)
		if err != nil {
			return 0, err
		}
		if !ok || queued[salt] {
			if strict {
				return 0, ErrInvalidSalt
			}
			rejected++
			continue
		}
		queue = append(queue, salt)
		queued[salt] = true
		accepted++
	}
	if accepted > 0 {
		if err := e.state.SaltQueuePut(queue); err != nil {
			return 0, err
		}
	}
	e.emit(events.SaltsAdded{
		Operator: caller,
		Accepted: uint64(accepted),
		Rejected: uint64(rejected),
		Strict:   strict,
	})
	return accepted, nil
}

// SaltCount returns the number of unconsumed salts in the queue.
func (e *Engine) SaltCount() (int, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	queue, err := e.state.SaltQueueGet()
	if err != nil {
		return 0, err
	}
	return len(queue), nil
}

// consumeSalt pops the oldest pre-validated salt. The entry is not
// re-validated: consumption and deployment happen atomically inside
// CreateToken, so the target address cannot be taken in between.
func (e *Engine) consumeSalt() ([32]byte, error) {
	queue, err := e.state.SaltQueueGet()
	if err != nil {
		return [32]byte{}, err
	}
	if len(queue) == 0 {
		return [32]byte{}, ErrNoSaltAvailable
	}
	salt := queue[0]
	if err := e.state.SaltQueuePut(queue[1:]); err != nil {
		return [32]byte{}, err
	}
	return salt, nil
}
