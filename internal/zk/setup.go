package zk

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

const (
	boardKey = "board"
	shotKey  = "shot"
)

func compile(circuit frontend.Circuit) (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
}

// EnsureKeys makes sure proving/verifying keys for both circuits exist in dir.
// Keys that are missing or unreadable are regenerated.
func EnsureKeys(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	circuits := map[string]frontend.Circuit{
		boardKey: &BoardCircuit{},
		shotKey:  &ShotCircuit{},
	}
	for name, circuit := range circuits {
		vkPath, pkPath := keyPaths(dir, name)
		if vk, pk, err := readKeys(vkPath, pkPath); err == nil && vk != nil && pk != nil {
			continue
		}
		cs, err := compile(circuit)
		if err != nil {
			return fmt.Errorf("compile %s circuit: %w", name, err)
		}
		pk, vk, err := groth16.Setup(cs)
		if err != nil {
			return fmt.Errorf("setup %s circuit: %w", name, err)
		}
		if err := writeVK(vkPath, vk); err != nil {
			return err
		}
		if err := writePK(pkPath, pk); err != nil {
			return err
		}
	}
	return nil
}

func keyPaths(dir, name string) (vk, pk string) {
	return filepath.Join(dir, name+".vk"), filepath.Join(dir, name+".pk")
}

// Prover holds compiled circuits and proving keys; safe for concurrent use.
type Prover struct {
	boardCS, shotCS constraint.ConstraintSystem
	boardPK, shotPK groth16.ProvingKey
}

// LoadProver compiles both circuits once and loads their proving keys.
func LoadProver(dir string) (*Prover, error) {
	boardCS, err := compile(&BoardCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile board circuit: %w", err)
	}
	shotCS, err := compile(&ShotCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile shot circuit: %w", err)
	}
	_, boardPK := keyPaths(dir, boardKey)
	_, shotPK := keyPaths(dir, shotKey)
	p := &Prover{boardCS: boardCS, shotCS: shotCS}
	if p.boardPK, err = readPK(boardPK); err != nil {
		return nil, fmt.Errorf("read board proving key: %w", err)
	}
	if p.shotPK, err = readPK(shotPK); err != nil {
		return nil, fmt.Errorf("read shot proving key: %w", err)
	}
	return p, nil
}

// ProveBoard proves cells (row-major, BoardCells long) commit to commitment.
func (p *Prover) ProveBoard(cells []uint8, salt, commitment *big.Int) ([]byte, error) {
	if len(cells) != BoardCells {
		return nil, errors.New("bad board length")
	}
	var assign BoardCircuit
	for i, v := range cells {
		assign.Cells[i] = v
	}
	assign.Salt = salt
	assign.Commitment = commitment
	return prove(p.boardCS, p.boardPK, &assign)
}

// ProveShot proves the cell at idx holds bit under commitment.
func (p *Prover) ProveShot(bit uint8, idx int, path []*big.Int, salt, commitment *big.Int) ([]byte, error) {
	if len(path) != MerkleDepth {
		return nil, errors.New("bad path length")
	}
	var assign ShotCircuit
	assign.Bit = bit
	for i := 0; i < MerkleDepth; i++ {
		assign.Path[i] = path[i]
	}
	assign.Salt = salt
	assign.Commitment = commitment
	assign.Index = idx
	assign.Hit = bit
	return prove(p.shotCS, p.shotPK, &assign)
}

func prove(cs constraint.ConstraintSystem, pk groth16.ProvingKey, assign frontend.Circuit) ([]byte, error) {
	fullWit, err := frontend.NewWitness(assign, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(cs, pk, fullWit)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Verifier checks proofs against the verifying keys only.
type Verifier struct {
	boardVK, shotVK groth16.VerifyingKey
}

func LoadVerifier(dir string) (*Verifier, error) {
	boardVK, _ := keyPaths(dir, boardKey)
	shotVK, _ := keyPaths(dir, shotKey)
	var (
		v   Verifier
		err error
	)
	if v.boardVK, err = readVK(boardVK); err != nil {
		return nil, fmt.Errorf("read board verifying key: %w", err)
	}
	if v.shotVK, err = readVK(shotVK); err != nil {
		return nil, fmt.Errorf("read shot verifying key: %w", err)
	}
	return &v, nil
}

// VerifyBoard returns nil when proof attests a valid board under commitment.
func (v *Verifier) VerifyBoard(proofBin []byte, commitment *big.Int) error {
	var pub BoardCircuit
	pub.Commitment = commitment
	return verify(v.boardVK, proofBin, &pub)
}

// VerifyShot returns nil when proof attests cell idx holds hit under commitment.
func (v *Verifier) VerifyShot(proofBin []byte, commitment *big.Int, idx int, hit uint8) error {
	var pub ShotCircuit
	pub.Commitment = commitment
	pub.Index = idx
	pub.Hit = hit
	return verify(v.shotVK, proofBin, &pub)
}

func verify(vk groth16.VerifyingKey, proofBin []byte, pubAssign frontend.Circuit) error {
	pubWit, err := frontend.NewWitness(pubAssign, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	pr := groth16.NewProof(ecc.BN254)
	if _, err := pr.ReadFrom(bytes.NewReader(proofBin)); err != nil {
		return err
	}
	return groth16.Verify(pr, vk, pubWit)
}

// --- key IO helpers using io.WriterTo / io.ReaderFrom ---

func writeVK(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

func writePK(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

func readVK(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func readPK(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

func readKeys(vkPath, pkPath string) (groth16.VerifyingKey, groth16.ProvingKey, error) {
	vk, err := readVK(vkPath)
	if err != nil {
		return nil, nil, err
	}
	pk, err := readPK(pkPath)
	if err != nil {
		return nil, nil, err
	}
	return vk, pk, nil
}
