package testzome

import (
	"context"
	"encoding/json"
	"errors"

	"xdao.co/agentchain/entry"
	"xdao.co/agentchain/model"
	"xdao.co/agentchain/query"
	"xdao.co/agentchain/sandbox"
	"xdao.co/agentchain/validation"
	"xdao.co/agentchain/zome"
)

type none struct{}

type getEntryResultRequest struct {
	EntryHash entry.Address `json:"entry_hash"`
}

type getEntryRequest struct {
	EntryAddress entry.Address `json:"entry_address"`
}

type Tweet struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type TweetPair struct {
	First  string `json:"first"`
	Second string `json:"second"`
}

type queryRequest struct {
	EntryTypeName string `json:"entry_type_name"`
	Limit         Limit  `json:"limit"`
}

type Text struct {
	Text string `json:"text"`
}

type Depth struct {
	Depth int `json:"depth"`
}

func registerTestZome(m *zome.Module) {
	zome.Register(m, "check_global", checkGlobal)
	zome.Register(m, "check_commit_entry", checkCommitEntry)
	zome.Register(m, "check_commit_entry_macro", checkCommitEntryMacro)
	zome.Register(m, "check_get_entry_result", checkGetEntryResult)
	zome.Register(m, "check_get_entry", checkGetEntry)
	zome.Register(m, "send_tweet", sendTweet)
	zome.Register(m, "commit_validation_package_tester", commitValidationPackageTester)
	zome.Register(m, "link_two_entries", linkTwoEntries)
	zome.Register(m, "links_roundtrip", linksRoundtrip)
	zome.Register(m, "check_query", checkQuery)
	zome.Register(m, "check_hash_app_entry", checkHashAppEntry)
	zome.Register(m, "check_hash_sys_entry", checkHashSysEntry)
	zome.Register(m, "check_call", checkCall)
	zome.Register(m, "check_call_with_args", checkCallWithArgs)
	zome.Register(m, "check_call_zome", checkCallZome)
	zome.Register(m, "recurse", recurse)
}

func registerHelperZome(m *zome.Module) {
	zome.Register(m, "echo", func(_ context.Context, _ sandbox.Host, t Text) (Text, error) {
		return t, nil
	})
}

func checkGlobal(ctx context.Context, host sandbox.Host, _ none) (entry.Address, error) {
	host.Debug(ctx, "agent "+host.AgentAddress().String()+" dna "+host.DNAAddress().String())
	return host.AgentAddress(), nil
}

func checkCommitEntry(ctx context.Context, host sandbox.Host, e entry.Entry) (model.AddressResponse, error) {
	addr, err := host.CommitEntry(ctx, e)
	if err != nil {
		return model.AddressResponse{}, err
	}
	return model.AddressResponse{Address: addr}, nil
}

// checkCommitEntryMacro reports rejections in the result instead of failing
// the call.
func checkCommitEntryMacro(ctx context.Context, host sandbox.Host, e entry.Entry) (model.Result[entry.Address], error) {
	addr, err := host.CommitEntry(ctx, e)
	if validation.IsRejection(err) {
		return model.Fail[entry.Address](err.Error()), nil
	}
	if err != nil {
		return model.Result[entry.Address]{}, err
	}
	return model.Ok(addr), nil
}

// checkGetEntryResult answers with the stored value itself.
func checkGetEntryResult(ctx context.Context, host sandbox.Host, req getEntryResultRequest) (json.RawMessage, error) {
	e, ok, err := host.GetEntry(ctx, req.EntryHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return entry.Marshal(model.NewNoEntry())
	}
	if json.Valid([]byte(e.Value)) {
		return json.RawMessage(e.Value), nil
	}
	return entry.Marshal(e.Value)
}

func checkGetEntry(ctx context.Context, host sandbox.Host, req getEntryRequest) (model.Result[*entry.Entry], error) {
	e, ok, err := host.GetEntry(ctx, req.EntryAddress)
	if err != nil {
		return model.Result[*entry.Entry]{}, err
	}
	if !ok {
		return model.Ok[*entry.Entry](nil), nil
	}
	return model.Ok(&e), nil
}

func sendTweet(_ context.Context, _ sandbox.Host, t Tweet) (TweetPair, error) {
	return TweetPair{First: t.Author, Second: t.Content}, nil
}

// commitValidationPackageTester commits an entry whose rule always rejects
// it with the package it was shown.
func commitValidationPackageTester(ctx context.Context, host sandbox.Host, _ none) (model.Result[entry.Address], error) {
	addr, err := host.CommitEntry(ctx, entry.New(ValidationPackageTesterType, `"validation package tester"`))
	var rej *validation.Error
	if errors.As(err, &rej) {
		return model.Fail[entry.Address](model.InternalErr{Internal: rej.Reason}), nil
	}
	if err != nil {
		return model.Result[entry.Address]{}, err
	}
	return model.Ok(addr), nil
}

func stuff(s string) entry.Entry {
	return entry.New(TestEntryType, `{"stuff":"`+s+`"}`)
}

func commitAll(ctx context.Context, host sandbox.Host, es ...entry.Entry) ([]entry.Address, error) {
	out := make([]entry.Address, 0, len(es))
	for _, e := range es {
		addr, err := host.CommitEntry(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func linkTwoEntries(ctx context.Context, host sandbox.Host, _ none) (model.Result[any], error) {
	addrs, err := commitAll(ctx, host, stuff("entry1"), stuff("entry2"))
	if err != nil {
		return model.Result[any]{}, err
	}
	if err := host.LinkEntries(ctx, addrs[0], addrs[1], LinkTag); err != nil {
		return model.Fail[any](err.Error()), nil
	}
	return model.Ok[any](nil), nil
}

func linksRoundtrip(ctx context.Context, host sandbox.Host, _ none) (model.LinksResponse, error) {
	addrs, err := commitAll(ctx, host, stuff("entry1"), stuff("entry2"), stuff("entry3"))
	if err != nil {
		return model.LinksResponse{}, err
	}
	for _, target := range addrs[1:] {
		if err := host.LinkEntries(ctx, addrs[0], target, LinkTag); err != nil {
			return model.LinksResponse{}, err
		}
	}
	return model.NewLinksResponse(host.GetLinks(ctx, addrs[0], LinkTag)), nil
}

func checkQuery(ctx context.Context, host sandbox.Host, req queryRequest) ([]entry.Address, error) {
	return host.Query(ctx, req.EntryTypeName, query.Options{Limit: int(req.Limit)}), nil
}

func checkHashAppEntry(_ context.Context, host sandbox.Host, _ none) (entry.Address, error) {
	return host.HashEntry(stuff("entry1")), nil
}

func checkHashSysEntry(_ context.Context, host sandbox.Host, _ none) (entry.Address, error) {
	return host.HashEntry(entry.New(entry.AgentIDType, SysAgentName)), nil
}

// checkCall returns whatever check_hash_app_entry returns.
func checkCall(ctx context.Context, host sandbox.Host, _ none) (json.RawMessage, error) {
	return host.Call(ctx, TestZome, TestCap, "check_hash_app_entry", json.RawMessage(`{}`))
}

// checkCallWithArgs commits through check_commit_entry_macro and unwraps
// the address.
func checkCallWithArgs(ctx context.Context, host sandbox.Host, _ none) (entry.Address, error) {
	params, err := entry.Marshal(stuff("non fail"))
	if err != nil {
		return "", err
	}
	out, err := host.Call(ctx, TestZome, TestCap, "check_commit_entry_macro", params)
	if err != nil {
		return "", err
	}
	var res model.Result[entry.Address]
	if err := json.Unmarshal(out, &res); err != nil {
		return "", err
	}
	if res.IsErr() {
		return "", validation.Reject(toString(res.Err))
	}
	return res.Value, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := entry.Marshal(v)
	return string(b)
}

func checkCallZome(ctx context.Context, host sandbox.Host, t Text) (Text, error) {
	params, err := entry.Marshal(t)
	if err != nil {
		return Text{}, err
	}
	out, err := host.Call(ctx, HelperZome, HelperCap, "echo", params)
	if err != nil {
		return Text{}, err
	}
	var echoed Text
	if err := json.Unmarshal(out, &echoed); err != nil {
		return Text{}, err
	}
	return echoed, nil
}

// recurse calls itself until depth reaches zero.
func recurse(ctx context.Context, host sandbox.Host, d Depth) (Depth, error) {
	if d.Depth <= 0 {
		return Depth{}, nil
	}
	params, err := entry.Marshal(Depth{Depth: d.Depth - 1})
	if err != nil {
		return Depth{}, err
	}
	out, err := host.Call(ctx, TestZome, TestCap, "recurse", params)
	if err != nil {
		return Depth{}, err
	}
	var inner Depth
	if err := json.Unmarshal(out, &inner); err != nil {
		return Depth{}, err
	}
	return Depth{Depth: inner.Depth + 1}, nil
}
