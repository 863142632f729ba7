/*
Copyright 2024 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1alpha1

import (
	"path/filepath"
	"slices"

	"k8s.io/utils/ptr"
)

// NumVariables is the length of the decision vector.
const NumVariables = 12

var (
	DefaultDataRoot       = "data"
	DefaultDataTag        = "bdc_oband"
	DefaultMinFeature     = 0.18
	DefaultDecimals       = 3
	DefaultWgWidth        = 0.38
	DefaultCladdingOffset = 1.0

	// wg_length, t_length, t_width_u[1..9], coupler_spacing
	DefaultLowerBounds = []float64{0.18, 0.18, 0.38, 0.38, 0.38, 0.38, 0.38, 0.38, 0.38, 0.38, 0.38, 0.18}
	DefaultUpperBounds = []float64{2.0, 6.0, 0.76, 0.76, 0.76, 0.76, 0.76, 0.76, 0.76, 0.76, 0.76, 0.6}

	DefaultSweepStart  = 1.25
	DefaultSweepStop   = 1.35
	DefaultSweepCount  = 101
	DefaultSweepCenter = 1.31

	DefaultPopSize             = 50
	DefaultNumGenerations      = 100
	DefaultCrossoverProb       = 0.9
	DefaultCrossoverEta        = 15.0
	DefaultMutationEta         = 20.0
	DefaultEliminateDuplicates = true
	DefaultSeed                = uint64(1)
	DefaultRefDirPartitions    = 6
	DefaultWorkers             = 1
	DefaultMemoize             = true
	DefaultTopN                = 10

	DefaultMeshAccuracy = 2

	DefaultOutputDir = "out"
)

// SetDefaults_OptimizationConfig fills every unset field.
func SetDefaults_OptimizationConfig(obj *OptimizationConfig) {
	if obj.APIVersion == "" {
		obj.APIVersion = APIVersion
	}
	if obj.Kind == "" {
		obj.Kind = Kind
	}
	SetDefaults_DesignArgs(&obj.Design)
	SetDefaults_SweepArgs(&obj.Sweep)
	SetDefaults_OptimizerArgs(&obj.Optimizer)
	SetDefaults_SolverArgs(&obj.Solver)
	SetDefaults_OutputArgs(&obj.Output)
}

func SetDefaults_DesignArgs(obj *DesignArgs) {
	if obj.DataRoot == "" {
		obj.DataRoot = DefaultDataRoot
	}
	if obj.DataTag == "" {
		obj.DataTag = DefaultDataTag
	}
	if len(obj.LowerBounds) == 0 {
		obj.LowerBounds = slices.Clone(DefaultLowerBounds)
	}
	if len(obj.UpperBounds) == 0 {
		obj.UpperBounds = slices.Clone(DefaultUpperBounds)
	}
	if obj.MinFeature == nil {
		obj.MinFeature = ptr.To(DefaultMinFeature)
	}
	if obj.Decimals == nil {
		obj.Decimals = ptr.To(DefaultDecimals)
	}
	if obj.WgWidth == nil {
		obj.WgWidth = ptr.To(DefaultWgWidth)
	}
	if obj.CladdingOffset == nil {
		obj.CladdingOffset = ptr.To(DefaultCladdingOffset)
	}
}

func SetDefaults_SweepArgs(obj *SweepArgs) {
	if obj.Start == nil {
		obj.Start = ptr.To(DefaultSweepStart)
	}
	if obj.Stop == nil {
		obj.Stop = ptr.To(DefaultSweepStop)
	}
	if obj.Count == nil {
		obj.Count = ptr.To(DefaultSweepCount)
	}
	if obj.Center == nil {
		obj.Center = ptr.To(DefaultSweepCenter)
	}
}

func SetDefaults_OptimizerArgs(obj *OptimizerArgs) {
	if obj.PopSize == nil {
		obj.PopSize = ptr.To(DefaultPopSize)
	}
	if obj.NumOffspring == nil {
		obj.NumOffspring = ptr.To(*obj.PopSize)
	}
	if obj.NumGenerations == nil {
		obj.NumGenerations = ptr.To(DefaultNumGenerations)
	}
	if obj.CrossoverProb == nil {
		obj.CrossoverProb = ptr.To(DefaultCrossoverProb)
	}
	if obj.CrossoverEta == nil {
		obj.CrossoverEta = ptr.To(DefaultCrossoverEta)
	}
	if obj.MutationEta == nil {
		obj.MutationEta = ptr.To(DefaultMutationEta)
	}
	if obj.EliminateDuplicates == nil {
		obj.EliminateDuplicates = ptr.To(DefaultEliminateDuplicates)
	}
	if obj.Seed == nil {
		obj.Seed = ptr.To(DefaultSeed)
	}
	if obj.RefDirPartitions == nil {
		obj.RefDirPartitions = ptr.To(DefaultRefDirPartitions)
	}
	if obj.Workers == nil {
		obj.Workers = ptr.To(DefaultWorkers)
	}
	if obj.Memoize == nil {
		obj.Memoize = ptr.To(DefaultMemoize)
	}
	if obj.TopN == nil {
		obj.TopN = ptr.To(DefaultTopN)
	}
}

func SetDefaults_SolverArgs(obj *SolverArgs) {
	if obj.MeshAccuracy == nil {
		obj.MeshAccuracy = ptr.To(DefaultMeshAccuracy)
	}
}

func SetDefaults_OutputArgs(obj *OutputArgs) {
	if obj.Dir == "" {
		obj.Dir = DefaultOutputDir
	}
	if obj.HistoryPlot == nil {
		obj.HistoryPlot = ptr.To(true)
	}
	if obj.ParetoPlot == nil {
		obj.ParetoPlot = ptr.To(true)
	}
	if obj.Archive == "sqlite" && obj.ArchivePath == "" {
		obj.ArchivePath = filepath.Join(obj.Dir, "evaluations.db")
	}
}
