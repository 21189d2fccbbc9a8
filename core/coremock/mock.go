// Copyright (C) 2026, IPPAN Network. All rights reserved.
// See the file LICENSE for licensing terms.

// Package coremock provides go.uber.org/mock/gomock-based mocks of the
// orchestrator's injected collaborator interfaces: a "<pkg>mock"
// sibling package, one mock type per interface, with an EXPECT()
// recorder.
package coremock

import (
	"reflect"

	"github.com/ippan-network/dlc-core/gbdt"
	"github.com/ippan-network/dlc-core/ids"
	"go.uber.org/mock/gomock"
)

// ModelLoader is a mock of core.ModelLoader.
type ModelLoader struct {
	ctrl     *gomock.Controller
	recorder *ModelLoaderRecorder
}

// ModelLoaderRecorder is the EXPECT() recorder for ModelLoader.
type ModelLoaderRecorder struct {
	mock *ModelLoader
}

// NewModelLoader creates a new gomock-controlled ModelLoader mock.
func NewModelLoader(ctrl *gomock.Controller) *ModelLoader {
	m := &ModelLoader{ctrl: ctrl}
	m.recorder = &ModelLoaderRecorder{mock: m}
	return m
}

// EXPECT returns the recorder used to set call expectations.
func (m *ModelLoader) EXPECT() *ModelLoaderRecorder {
	return m.recorder
}

// LoadModel mocks core.ModelLoader.LoadModel.
func (m *ModelLoader) LoadModel() (*gbdt.Model, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "LoadModel")
	model, _ := ret[0].(*gbdt.Model)
	err, _ := ret[1].(error)
	return model, err
}

// LoadModel indicates an expected call of LoadModel.
func (r *ModelLoaderRecorder) LoadModel() *gomock.Call {
	r.mock.ctrl.T.Helper()
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "LoadModel", reflect.TypeOf((*ModelLoader)(nil).LoadModel))
}

// SignatureVerifier is a mock of core.SignatureVerifier.
type SignatureVerifier struct {
	ctrl     *gomock.Controller
	recorder *SignatureVerifierRecorder
}

// SignatureVerifierRecorder is the EXPECT() recorder for SignatureVerifier.
type SignatureVerifierRecorder struct {
	mock *SignatureVerifier
}

// NewSignatureVerifier creates a new gomock-controlled SignatureVerifier mock.
func NewSignatureVerifier(ctrl *gomock.Controller) *SignatureVerifier {
	m := &SignatureVerifier{ctrl: ctrl}
	m.recorder = &SignatureVerifierRecorder{mock: m}
	return m
}

// EXPECT returns the recorder used to set call expectations.
func (m *SignatureVerifier) EXPECT() *SignatureVerifierRecorder {
	return m.recorder
}

// VerifySignature mocks core.SignatureVerifier.VerifySignature.
func (m *SignatureVerifier) VerifySignature(validatorID ids.ValidatorID, message []byte, signature [64]byte) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "VerifySignature", validatorID, message, signature)
	ok, _ := ret[0].(bool)
	return ok
}

// VerifySignature indicates an expected call of VerifySignature.
func (r *SignatureVerifierRecorder) VerifySignature(validatorID, message, signature interface{}) *gomock.Call {
	r.mock.ctrl.T.Helper()
	return r.mock.ctrl.RecordCallWithMethodType(r.mock, "VerifySignature", reflect.TypeOf((*SignatureVerifier)(nil).VerifySignature), validatorID, message, signature)
}
