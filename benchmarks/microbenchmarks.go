package benchmarks

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets a specific scheduling characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentFPAdds(),
		dependencyChain(),
		mulDivMix(),
		loadUse(),
		memorySequential(),
		storeToLoad(),
		structuralPressure(),
		integerLoop(),
		daxpyLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick
// validation: a loop, a memory kernel, and a dependency chain.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		integerLoop(),
		daxpyLoop(),
		dependencyChain(),
	}
}

// 1. Independent FP adds - limited only by stations, units, and the bus
func independentFPAdds() Benchmark {
	return Benchmark{
		Name:        "independent_fp_adds",
		Description: "6 independent ADD.D - measures issue and bus throughput",
		Source: `
			ADD.D F0, F2, F4
			ADD.D F6, F2, F4
			ADD.D F8, F2, F4
			ADD.D F10, F2, F4
			ADD.D F12, F2, F4
			ADD.D F14, F2, F4
		`,
		Registers:         map[string]float64{"F2": 1, "F4": 2},
		ExpectedRegisters: map[string]float64{"F0": 3, "F14": 3},
	}
}

// 2. Dependency chain - every add waits for the previous broadcast
func dependencyChain() Benchmark {
	return Benchmark{
		Name:        "dependency_chain",
		Description: "8 dependent ADD.D (F0 = F0 + F2) - measures wake-up latency",
		Source: `
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
			ADD.D F0, F0, F2
		`,
		Registers:         map[string]float64{"F2": 1.5},
		ExpectedRegisters: map[string]float64{"F0": 12},
	}
}

// 3. Long-latency multiply and divide feeding short adds
func mulDivMix() Benchmark {
	return Benchmark{
		Name:        "mul_div_mix",
		Description: "MUL.D and DIV.D feeding ADD.D and SUB.D - out-of-order completion",
		Source: `
			MUL.D F0, F2, F4
			DIV.D F6, F2, F4
			ADD.D F8, F0, F6
			SUB.D F10, F0, F6
		`,
		Registers:         map[string]float64{"F2": 6, "F4": 3},
		ExpectedRegisters: map[string]float64{"F8": 20, "F10": 16},
	}
}

// 4. Load-use - consumers wait for cache misses
func loadUse() Benchmark {
	return Benchmark{
		Name:        "load_use",
		Description: "two loads feeding a multiply and a store - miss latency exposed",
		Source: `
			L.D F0, 0(R0)
			L.D F2, 8(R0)
			MUL.D F4, F0, F2
			S.D F4, 16(R0)
		`,
		Memory:            map[uint64]float64{0: 2.5, 8: 4},
		ExpectedRegisters: map[string]float64{"F4": 10},
		ExpectedMemory:    map[uint64]float64{16: 10},
	}
}

// 5. Sequential loads - later loads hit filled lines
func memorySequential() Benchmark {
	return Benchmark{
		Name:        "memory_sequential",
		Description: "8 sequential L.D then a reduction - measures cache fills",
		Source: `
			L.D F0, 0(R0)
			L.D F2, 8(R0)
			L.D F4, 16(R0)
			L.D F6, 24(R0)
			L.D F8, 32(R0)
			L.D F10, 40(R0)
			L.D F12, 48(R0)
			L.D F14, 56(R0)
			ADD.D F16, F0, F2
			ADD.D F18, F4, F6
			ADD.D F20, F16, F18
		`,
		Memory: map[uint64]float64{
			0: 1, 8: 2, 16: 3, 24: 4, 32: 5, 40: 6, 48: 7, 56: 8,
		},
		ExpectedRegisters: map[string]float64{"F20": 10, "F14": 8},
	}
}

// 6. Store then load of the same address - the load waits for the store
func storeToLoad() Benchmark {
	return Benchmark{
		Name:        "store_to_load",
		Description: "S.D then L.D of the same address - measures memory ordering stalls",
		Source: `
			S.D F2, 0(R1)
			L.D F4, 0(R1)
			ADD.D F6, F4, F4
		`,
		Registers:         map[string]float64{"F2": 5},
		ExpectedRegisters: map[string]float64{"F6": 10},
		ExpectedMemory:    map[uint64]float64{0: 5},
	}
}

// 7. Structural pressure - more multiplies than stations
func structuralPressure() Benchmark {
	return Benchmark{
		Name:        "structural_pressure",
		Description: "4 independent MUL.D on 2 stations and 1 unit - structural stalls",
		Source: `
			MUL.D F0, F2, F2
			MUL.D F4, F2, F2
			MUL.D F6, F2, F2
			MUL.D F8, F2, F2
		`,
		Registers:         map[string]float64{"F2": 2},
		ExpectedRegisters: map[string]float64{"F0": 4, "F8": 4},
	}
}

// 8. Integer loop - branch resolution on every iteration
func integerLoop() Benchmark {
	return Benchmark{
		Name:        "integer_loop",
		Description: "10-iteration counter loop - measures branch stalls",
		Source: `
			LOOP: DADDI R1, R1, 1
			      DADDI R3, R3, 2
			      BNE R1, R2, LOOP
		`,
		Registers:         map[string]float64{"R2": 10},
		ExpectedRegisters: map[string]float64{"R1": 10, "R3": 20},
	}
}

// 9. DAXPY - Y = a*X + Y over four elements
func daxpyLoop() Benchmark {
	return Benchmark{
		Name:        "daxpy_loop",
		Description: "4-element DAXPY loop - loads, stores, and a loop-carried index",
		Source: `
			LOOP: L.D F0, 0(R1)
			      MUL.D F4, F0, F2
			      L.D F6, 64(R1)
			      ADD.D F6, F4, F6
			      S.D F6, 64(R1)
			      DADDI R1, R1, 8
			      BNE R1, R2, LOOP
		`,
		Registers: map[string]float64{"F2": 3, "R2": 32},
		Memory: map[uint64]float64{
			0: 1, 8: 2, 16: 3, 24: 4,
			64: 10, 72: 20, 80: 30, 88: 40,
		},
		ExpectedRegisters: map[string]float64{"R1": 32},
		ExpectedMemory: map[uint64]float64{
			64: 13, 72: 26, 80: 39, 88: 52,
		},
	}
}
