//
// Copyright 2023 Bytedance Ltd. and/or its affiliates
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	"github.com/bytedance/dddsale/biz/sale/domain"
	"github.com/bytedance/dddsale/handler"
)

type errorBody struct {
	Kind    string `json:"Kind"`
	Message string `json:"Message"`
}

func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput, domain.KindInsufficientStock, domain.KindInvalidTransition:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	bs, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(bs)
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Kind: domain.KindOf(err).String(), Message: err.Error()}
	var se *domain.SaleError
	if errors.As(err, &se) {
		body.Message = se.Message
	}
	writeJSON(w, statusOf(err), body)
}

// Handler 按 query 参数 Action 反射调用 SaleServiceImpl 的同名方法，body 为 JSON 请求
func Handler(service *handler.SaleServiceImpl) func(w http.ResponseWriter, r *http.Request) {
	serviceVal := reflect.ValueOf(service)
	return func(w http.ResponseWriter, r *http.Request) {
		action := r.URL.Query().Get("Action")
		method := serviceVal.MethodByName(action)
		if action == "" || !method.IsValid() || method.Type().NumIn() != 2 || method.Type().NumOut() != 2 {
			writeJSON(w, http.StatusNotFound, errorBody{Kind: "UnknownAction", Message: "unknown action " + action})
			return
		}
		t := method.Type().In(1)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		req := reflect.New(t)
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Kind: domain.KindInvalidInput.String(), Message: "body invalid"})
			return
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, req.Interface()); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Kind: domain.KindInvalidInput.String(), Message: "body invalid"})
				return
			}
		}
		rets := method.Call([]reflect.Value{reflect.ValueOf(r.Context()), req})
		if errValue, ok := rets[1].Interface().(error); ok && errValue != nil {
			writeError(w, errValue)
			return
		}
		writeJSON(w, http.StatusOK, rets[0].Interface())
	}
}
