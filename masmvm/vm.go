// Package masmvm is a small reference interpreter for the MASM this repo
// emits, used by tests to execute a compiled masm.Function and check its
// result against the HIR it was generated from (spec.md's testable
// properties P1-P8, scenarios S1-S6). No dependency in the retrieved
// example corpus provides an actual Miden VM, so this package stands in
// for one: it implements exactly the op vocabulary masm.Op defines,
// nothing more, and is not a faithful performance or security model of any
// real VM.
package masmvm

import (
	"fmt"
	"math/bits"

	"github.com/gopherj/hir2masm/masm"
)

// FieldModulus is the target VM's native felt modulus, 2^64 - 2^32 + 1.
const FieldModulus uint64 = 0xFFFFFFFF00000001

func reduce(x uint64) uint64 {
	if x >= FieldModulus {
		return x - FieldModulus
	}
	return x
}

func feltAdd(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 || sum >= FieldModulus {
		sum -= FieldModulus
	}
	return sum
}

func feltSub(a, b uint64) uint64 {
	if a >= b {
		return a - b
	}
	return FieldModulus - (b - a)
}

func feltMul(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%FieldModulus, lo, FieldModulus)
	return rem
}

// VM executes one masm.Function body at a time against a shared felt stack
// and linear memory, resolving exec/call targets against a Program.
type VM struct {
	Program *masm.Program
	stack   []uint64
	mem     map[uint32]uint64
}

func NewVM(p *masm.Program) *VM {
	return &VM{Program: p, mem: map[uint32]uint64{}}
}

// Run executes fn with args pushed so that args[0] ends up on top (mirroring
// the Driver's own entry-stack convention), returning the stack's final
// contents top-first.
func (vm *VM) Run(fn *masm.Function, args []uint64) ([]uint64, error) {
	for i := len(args) - 1; i >= 0; i-- {
		vm.stack = append(vm.stack, args[i])
	}
	if err := vm.exec(fn.Body); err != nil {
		return nil, err
	}
	out := make([]uint64, len(vm.stack))
	for i, v := range vm.stack {
		out[len(vm.stack)-1-i] = v
	}
	return out, nil
}

func (vm *VM) push(v uint64) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop() (uint64, error) {
	if len(vm.stack) == 0 {
		return 0, fmt.Errorf("masmvm: pop on empty stack")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// peek returns the value at depth n from the top (0 = top) without popping.
func (vm *VM) peek(n int) (uint64, error) {
	idx := len(vm.stack) - 1 - n
	if idx < 0 {
		return 0, fmt.Errorf("masmvm: peek(%d) out of range (depth %d)", n, len(vm.stack))
	}
	return vm.stack[idx], nil
}

type openFrame struct {
	isWhile bool
	idx     int
}

// exec interprets one flat MASM body, resolving structured control flow by
// a single pre-pass matching each if.true/while.true to its else/end.
func (vm *VM) exec(body []masm.Op) error {
	var stk []openFrame
	matchEnd := make(map[int]int, len(body))
	matchElse := make(map[int]int, len(body))
	isWhileEnd := make(map[int]bool, len(body))
	whileBodyStart := make(map[int]int, len(body))

	for i, op := range body {
		switch op.Kind {
		case masm.OpIfTrue:
			stk = append(stk, openFrame{isWhile: false, idx: i})
		case masm.OpWhileTrue:
			stk = append(stk, openFrame{isWhile: true, idx: i})
		case masm.OpElse:
			top := stk[len(stk)-1]
			matchElse[top.idx] = i
		case masm.OpEnd:
			top := stk[len(stk)-1]
			stk = stk[:len(stk)-1]
			matchEnd[top.idx] = i
			if e, ok := matchElse[top.idx]; ok {
				matchEnd[e] = i
			}
			isWhileEnd[i] = top.isWhile
			if top.isWhile {
				whileBodyStart[i] = top.idx + 1
			}
		}
	}

	ip := 0
	for ip < len(body) {
		op := body[ip]
		switch op.Kind {
		case masm.OpPush:
			vm.push(reduce(uint64(op.Imm)))
			ip++
		case masm.OpDup:
			v, err := vm.peek(op.N)
			if err != nil {
				return err
			}
			vm.push(v)
			ip++
		case masm.OpDupW:
			for k := 3; k >= 0; k-- {
				v, err := vm.peek(op.N*4 + k)
				if err != nil {
					return err
				}
				vm.push(v)
			}
			ip++
		case masm.OpSwap:
			if err := vm.swap(op.N); err != nil {
				return err
			}
			ip++
		case masm.OpSwapW:
			for k := 0; k < 4; k++ {
				if err := vm.swap(op.N*4 + k); err != nil {
					return err
				}
			}
			ip++
		case masm.OpMovUp:
			if err := vm.movUp(op.N); err != nil {
				return err
			}
			ip++
		case masm.OpMovDn:
			if err := vm.movDn(op.N); err != nil {
				return err
			}
			ip++
		case masm.OpDrop:
			if _, err := vm.pop(); err != nil {
				return err
			}
			ip++
		case masm.OpDropW:
			for k := 0; k < 4; k++ {
				if _, err := vm.pop(); err != nil {
					return err
				}
			}
			ip++
		case masm.OpAdd, masm.OpSub, masm.OpMul, masm.OpEq, masm.OpNeq, masm.OpLt, masm.OpGt, masm.OpLte, masm.OpGte, masm.OpAnd, masm.OpOr, masm.OpXor, masm.OpShl, masm.OpShr:
			if err := vm.binary(op); err != nil {
				return err
			}
			ip++
		case masm.OpMemLoad:
			addr, err := vm.pop()
			if err != nil {
				return err
			}
			vm.push(vm.mem[uint32(addr)])
			ip++
		case masm.OpMemStore:
			addr, err := vm.pop()
			if err != nil {
				return err
			}
			val, err := vm.pop()
			if err != nil {
				return err
			}
			vm.mem[uint32(addr)] = val
			ip++
		case masm.OpMemLoadW:
			addr, err := vm.pop()
			if err != nil {
				return err
			}
			for k := 3; k >= 0; k-- {
				vm.push(vm.mem[uint32(addr)+uint32(k)])
			}
			ip++
		case masm.OpMemStoreW:
			addr, err := vm.pop()
			if err != nil {
				return err
			}
			for k := 0; k < 4; k++ {
				val, err := vm.pop()
				if err != nil {
					return err
				}
				vm.mem[uint32(addr)+uint32(k)] = val
			}
			ip++
		case masm.OpIfTrue:
			cond, err := vm.pop()
			if err != nil {
				return err
			}
			if cond != 0 {
				ip++
			} else if e, ok := matchElse[ip]; ok {
				ip = e + 1
			} else {
				ip = matchEnd[ip] + 1
			}
		case masm.OpElse:
			ip = matchEnd[ip] + 1
		case masm.OpWhileTrue:
			cond, err := vm.pop()
			if err != nil {
				return err
			}
			if cond != 0 {
				ip++
			} else {
				ip = matchEnd[ip] + 1
			}
		case masm.OpEnd:
			if isWhileEnd[ip] {
				cond, err := vm.pop()
				if err != nil {
					return err
				}
				if cond != 0 {
					ip = whileBodyStart[ip]
					continue
				}
			}
			ip++
		case masm.OpExec, masm.OpCall:
			if err := vm.call(op.Path); err != nil {
				return err
			}
			ip++
		default:
			return fmt.Errorf("masmvm: unsupported op %s", op)
		}
	}
	return nil
}

func (vm *VM) swap(n int) error {
	a, err := vm.peek(0)
	if err != nil {
		return err
	}
	b, err := vm.peek(n)
	if err != nil {
		return err
	}
	top := len(vm.stack) - 1
	vm.stack[top], vm.stack[top-n] = b, a
	return nil
}

func (vm *VM) movUp(n int) error {
	if n == 0 {
		return nil
	}
	idx := len(vm.stack) - 1 - n
	if idx < 0 {
		return fmt.Errorf("masmvm: movup.%d out of range", n)
	}
	v := vm.stack[idx]
	vm.stack = append(vm.stack[:idx], vm.stack[idx+1:]...)
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) movDn(n int) error {
	if n == 0 {
		return nil
	}
	v, err := vm.pop()
	if err != nil {
		return err
	}
	idx := len(vm.stack) - n
	if idx < 0 {
		return fmt.Errorf("masmvm: movdn.%d out of range", n)
	}
	tail := append([]uint64{v}, vm.stack[idx:]...)
	vm.stack = append(vm.stack[:idx], tail...)
	return nil
}

func (vm *VM) binary(op masm.Op) error {
	b, err := vm.pop()
	if err != nil {
		return err
	}
	a, err := vm.pop()
	if err != nil {
		return err
	}
	var r uint64
	switch op.Kind {
	case masm.OpAdd:
		if op.Variant == masm.VariantFelt {
			r = feltAdd(a, b)
		} else {
			r = uint64(uint32(a) + uint32(b))
		}
	case masm.OpSub:
		if op.Variant == masm.VariantFelt {
			r = feltSub(a, b)
		} else {
			r = uint64(uint32(a) - uint32(b))
		}
	case masm.OpMul:
		if op.Variant == masm.VariantFelt {
			r = feltMul(a, b)
		} else {
			r = uint64(uint32(a) * uint32(b))
		}
	case masm.OpEq:
		r = boolU64(a == b)
	case masm.OpNeq:
		r = boolU64(a != b)
	case masm.OpLt:
		r = boolU64(a < b)
	case masm.OpGt:
		r = boolU64(a > b)
	case masm.OpLte:
		r = boolU64(a <= b)
	case masm.OpGte:
		r = boolU64(a >= b)
	case masm.OpAnd:
		r = uint64(uint32(a) & uint32(b))
	case masm.OpOr:
		r = uint64(uint32(a) | uint32(b))
	case masm.OpXor:
		r = uint64(uint32(a) ^ uint32(b))
	case masm.OpShl:
		r = uint64(uint32(a) << (uint32(b) & 31))
	case masm.OpShr:
		r = uint64(uint32(a) >> (uint32(b) & 31))
	}
	vm.push(r)
	return nil
}

func boolU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func (vm *VM) call(path string) error {
	for _, m := range vm.Program.Modules {
		for _, fn := range m.Functions {
			if fn.ID.String() == path || fn.ID.Name == path {
				return vm.exec(fn.Body)
			}
		}
	}
	return fmt.Errorf("masmvm: procedure %q not found", path)
}
