package codec

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
)

func viewOf(t *testing.T, inst solana.Instruction) DecodedInstruction {
	t.Helper()

	data, err := inst.Data()
	if err != nil {
		t.Fatalf("instruction data: %v", err)
	}
	keys := make([]solana.PublicKey, 0, len(inst.Accounts()))
	for _, meta := range inst.Accounts() {
		keys = append(keys, meta.PublicKey)
	}
	return DecodedInstruction{
		ProgramID:   inst.ProgramID(),
		AccountKeys: keys,
		Data:        data,
	}
}

func nativeTransferData(tag uint32, lamports uint64) []byte {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], tag)
	binary.LittleEndian.PutUint64(data[4:12], lamports)
	return data
}

func TestNativeTransferRoundTrip(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()

	view := viewOf(t, EncodeNativeTransfer(from, to, 1_000_000))

	transfer, ok := DecodeNativeTransfer(view)
	if !ok {
		t.Fatal("encoded native transfer did not decode")
	}
	if transfer.Lamports != 1_000_000 {
		t.Errorf("lamports = %d, want 1000000", transfer.Lamports)
	}
	if !transfer.From.Equals(from) || !transfer.To.Equals(to) {
		t.Errorf("accounts = %s -> %s, want %s -> %s", transfer.From, transfer.To, from, to)
	}
}

func TestDecodeNativeTransferRejectsMalformed(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()
	accounts := []solana.PublicKey{from, to}

	tests := []struct {
		name string
		inst DecodedInstruction
	}{
		{
			name: "wrong program",
			inst: DecodedInstruction{ProgramID: solana.TokenProgramID, AccountKeys: accounts, Data: nativeTransferData(2, 100)},
		},
		{
			name: "wrong tag",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: accounts, Data: nativeTransferData(3, 100)},
		},
		{
			name: "short data",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: accounts, Data: nativeTransferData(2, 100)[:11]},
		},
		{
			name: "long data",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: accounts, Data: append(nativeTransferData(2, 100), 0)},
		},
		{
			name: "one account",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: accounts[:1], Data: nativeTransferData(2, 100)},
		},
		{
			name: "empty data",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: accounts, Data: nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := DecodeNativeTransfer(tt.inst); ok {
				t.Error("malformed instruction decoded as a transfer")
			}
		})
	}
}

func TestTokenTransferCheckedRoundTrip(t *testing.T) {
	source := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	view := viewOf(t, EncodeTokenTransferChecked(source, mint, dest, owner, 250_000, 6))

	transfer, ok := DecodeTokenTransfer(view)
	if !ok {
		t.Fatal("encoded checked transfer did not decode")
	}
	if !transfer.Checked {
		t.Error("expected checked variant")
	}
	if transfer.Amount != 250_000 {
		t.Errorf("amount = %d, want 250000", transfer.Amount)
	}
	if transfer.Decimals != 6 {
		t.Errorf("decimals = %d, want 6", transfer.Decimals)
	}
	if !transfer.Source.Equals(source) || !transfer.Destination.Equals(dest) {
		t.Error("source/destination mismatch")
	}
	if !transfer.Mint.Equals(mint) {
		t.Error("mint mismatch")
	}
	if !transfer.Authority.Equals(owner) {
		t.Error("authority mismatch")
	}
}

func TestDecodeTokenTransferBasicVariant(t *testing.T) {
	source := solana.NewWallet().PublicKey()
	dest := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	data := make([]byte, 9)
	data[0] = 3
	binary.LittleEndian.PutUint64(data[1:9], 77)

	transfer, ok := DecodeTokenTransfer(DecodedInstruction{
		ProgramID:   solana.TokenProgramID,
		AccountKeys: []solana.PublicKey{source, dest, owner},
		Data:        data,
	})
	if !ok {
		t.Fatal("basic transfer did not decode")
	}
	if transfer.Checked {
		t.Error("basic variant reported as checked")
	}
	if transfer.Amount != 77 {
		t.Errorf("amount = %d, want 77", transfer.Amount)
	}
	if !transfer.Destination.Equals(dest) {
		t.Error("destination mismatch")
	}
}

func TestDecodeTokenTransferRejectsMalformed(t *testing.T) {
	keys := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}

	tokenData := make([]byte, 9)
	tokenData[0] = 3
	binary.LittleEndian.PutUint64(tokenData[1:9], 1)

	tests := []struct {
		name string
		inst DecodedInstruction
	}{
		{
			name: "wrong program",
			inst: DecodedInstruction{ProgramID: solana.SystemProgramID, AccountKeys: keys, Data: tokenData},
		},
		{
			name: "unknown tag",
			inst: DecodedInstruction{ProgramID: solana.TokenProgramID, AccountKeys: keys, Data: append([]byte{7}, tokenData[1:]...)},
		},
		{
			name: "short data",
			inst: DecodedInstruction{ProgramID: solana.TokenProgramID, AccountKeys: keys, Data: tokenData[:8]},
		},
		{
			name: "checked missing decimals byte",
			inst: DecodedInstruction{ProgramID: solana.TokenProgramID, AccountKeys: keys, Data: append([]byte{12}, tokenData[1:]...)},
		},
		{
			name: "checked with too few accounts",
			inst: DecodedInstruction{ProgramID: solana.TokenProgramID, AccountKeys: keys, Data: append(append([]byte{12}, tokenData[1:]...), 6)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := DecodeTokenTransfer(tt.inst); ok {
				t.Error("malformed instruction decoded as a transfer")
			}
		})
	}
}

func TestDeriveTokenAccountDeterministic(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	first, err := DeriveTokenAccount(owner, mint)
	if err != nil {
		t.Fatalf("DeriveTokenAccount: %v", err)
	}
	second, err := DeriveTokenAccount(owner, mint)
	if err != nil {
		t.Fatalf("DeriveTokenAccount: %v", err)
	}
	if !first.Equals(second) {
		t.Error("derivation is not deterministic")
	}

	other, err := DeriveTokenAccount(owner, solana.NewWallet().PublicKey())
	if err != nil {
		t.Fatalf("DeriveTokenAccount: %v", err)
	}
	if first.Equals(other) {
		t.Error("different mints derived the same account")
	}
}

func TestViewInstructionsSkipsOutOfRangeIndexes(t *testing.T) {
	payer := solana.NewWallet()
	to := solana.NewWallet().PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{EncodeNativeTransfer(payer.PublicKey(), to, 42)},
		solana.Hash{},
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}

	views := ViewInstructions(tx)
	if len(views) != 1 {
		t.Fatalf("expected 1 view, got %d", len(views))
	}

	// Corrupt the account indexes; the view must be skipped, not reported.
	tx.Message.Instructions[0].Accounts[0] = 200
	if views := ViewInstructions(tx); len(views) != 0 {
		t.Errorf("expected corrupted instruction to be skipped, got %d views", len(views))
	}

	if views := ViewInstructions(nil); views != nil {
		t.Error("nil transaction should yield no views")
	}
}
