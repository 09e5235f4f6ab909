// Package codec encodes and decodes the two transfer instruction layouts the
// payment protocol accepts: the system program's native transfer and the SPL
// token program's transfer (basic and checked variants).
package codec

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// System program native transfer: u32 LE instruction tag followed by a u64 LE
// lamport amount.
const (
	nativeTransferTag     = 2
	nativeTransferDataLen = 12
)

// SPL token program transfers: u8 instruction tag followed by a u64 LE
// amount. The checked variant appends a u8 decimals byte.
const (
	tokenTransferTag         = 3
	tokenTransferCheckedTag  = 12
	tokenTransferMinDataLen  = 9
	tokenCheckedMinDataLen   = 10
	nativeTransferAccountLen = 2
)

// DecodedInstruction is a read-only view over one instruction of an
// externally supplied transaction.
type DecodedInstruction struct {
	ProgramID   solana.PublicKey
	AccountKeys []solana.PublicKey
	Data        []byte
}

// NativeTransfer is the decoded form of a system transfer instruction.
type NativeTransfer struct {
	From     solana.PublicKey
	To       solana.PublicKey
	Lamports uint64
}

// TokenTransfer is the decoded form of an SPL transfer instruction. Checked
// reports whether the checked variant was seen; Mint is set only for it.
type TokenTransfer struct {
	Source      solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey
	Mint        solana.PublicKey
	Amount      uint64
	Decimals    uint8
	Checked     bool
}

// ViewInstructions flattens a transaction's compiled instructions into
// read-only views with resolved account keys. Instructions referencing
// out-of-range account indexes are skipped rather than reported.
func ViewInstructions(tx *solana.Transaction) []DecodedInstruction {
	if tx == nil {
		return nil
	}

	keys := tx.Message.AccountKeys
	views := make([]DecodedInstruction, 0, len(tx.Message.Instructions))

	for _, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		accounts := make([]solana.PublicKey, 0, len(inst.Accounts))
		ok := true
		for _, idx := range inst.Accounts {
			if int(idx) >= len(keys) {
				ok = false
				break
			}
			accounts = append(accounts, keys[idx])
		}
		if !ok {
			continue
		}
		views = append(views, DecodedInstruction{
			ProgramID:   keys[inst.ProgramIDIndex],
			AccountKeys: accounts,
			Data:        inst.Data,
		})
	}

	return views
}

// DecodeNativeTransfer attempts to read inst as a system transfer. A false
// return means "not a match", never an error: malformed instructions are an
// expected, frequent outcome when scanning untrusted transactions.
func DecodeNativeTransfer(inst DecodedInstruction) (NativeTransfer, bool) {
	if !inst.ProgramID.Equals(solana.SystemProgramID) {
		return NativeTransfer{}, false
	}
	if len(inst.Data) != nativeTransferDataLen {
		return NativeTransfer{}, false
	}
	if binary.LittleEndian.Uint32(inst.Data[0:4]) != nativeTransferTag {
		return NativeTransfer{}, false
	}
	if len(inst.AccountKeys) < nativeTransferAccountLen {
		return NativeTransfer{}, false
	}

	return NativeTransfer{
		From:     inst.AccountKeys[0],
		To:       inst.AccountKeys[1],
		Lamports: binary.LittleEndian.Uint64(inst.Data[4:12]),
	}, true
}

// DecodeTokenTransfer attempts to read inst as an SPL transfer. Both the
// basic and checked variants are accepted; only the checked variant is ever
// produced by this SDK.
func DecodeTokenTransfer(inst DecodedInstruction) (TokenTransfer, bool) {
	if !inst.ProgramID.Equals(solana.TokenProgramID) {
		return TokenTransfer{}, false
	}
	if len(inst.Data) < tokenTransferMinDataLen {
		return TokenTransfer{}, false
	}

	switch inst.Data[0] {
	case tokenTransferTag:
		// Accounts: [source, destination, owner, ...].
		if len(inst.AccountKeys) < 3 {
			return TokenTransfer{}, false
		}
		return TokenTransfer{
			Source:      inst.AccountKeys[0],
			Destination: inst.AccountKeys[1],
			Authority:   inst.AccountKeys[2],
			Amount:      binary.LittleEndian.Uint64(inst.Data[1:9]),
		}, true

	case tokenTransferCheckedTag:
		// Accounts: [source, mint, destination, owner, ...].
		if len(inst.Data) < tokenCheckedMinDataLen || len(inst.AccountKeys) < 4 {
			return TokenTransfer{}, false
		}
		return TokenTransfer{
			Source:      inst.AccountKeys[0],
			Mint:        inst.AccountKeys[1],
			Destination: inst.AccountKeys[2],
			Authority:   inst.AccountKeys[3],
			Amount:      binary.LittleEndian.Uint64(inst.Data[1:9]),
			Decimals:    inst.Data[9],
			Checked:     true,
		}, true
	}

	return TokenTransfer{}, false
}

// EncodeNativeTransfer builds a system transfer instruction.
func EncodeNativeTransfer(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

// EncodeTokenTransferChecked builds an SPL TransferChecked instruction. The
// checked variant is the only one this SDK emits.
func EncodeTokenTransferChecked(source, mint, destination, owner solana.PublicKey, amount uint64, decimals uint8) solana.Instruction {
	return token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		owner,
		nil,
	).Build()
}

// DeriveTokenAccount resolves the canonical token-holding address for
// (mint, owner). The derivation itself is the program-derived address
// function of the associated token program.
func DeriveTokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return addr, nil
}
